package resilience

import "strings"

// Key namespaces. Callers must build keys through these helpers so
// unrelated resources never collide on the same circuit.
const (
	NamespaceNode    = "node"
	NamespaceService = "service"
	NamespaceAPI     = "api"
)

// NodeKey builds the circuit key for a workflow node type,
// e.g. NodeKey("http-request") -> "node:http-request".
func NodeKey(nodeType string) string {
	return NamespaceNode + ":" + nodeType
}

// ServiceKey builds the circuit key for an external service,
// e.g. ServiceKey("mailer") -> "service:mailer".
func ServiceKey(name string) string {
	return NamespaceService + ":" + name
}

// APIKey builds the circuit key for an API endpoint,
// e.g. APIKey("https://api.example.com/v1") -> "api:https://api.example.com/v1".
func APIKey(endpoint string) string {
	return NamespaceAPI + ":" + endpoint
}

// SplitKey splits a circuit key into its namespace and identifier.
// Keys without a namespace separator return an empty namespace.
func SplitKey(key string) (namespace, id string) {
	idx := strings.Index(key, ":")
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}

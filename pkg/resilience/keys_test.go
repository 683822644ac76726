package resilience

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "node:http-request", NodeKey("http-request"))
	assert.Equal(t, "service:mailer", ServiceKey("mailer"))
	assert.Equal(t, "api:https://api.example.com/v1/chat", APIKey("https://api.example.com/v1/chat"))
}

func TestKeyBuilders_NoCollisions(t *testing.T) {
	// The same identifier in different namespaces must map to
	// different circuits.
	assert.NotEqual(t, NodeKey("slack"), ServiceKey("slack"))
	assert.NotEqual(t, ServiceKey("slack"), APIKey("slack"))
}

func TestSplitKey(t *testing.T) {
	ns, id := SplitKey("node:http-request")
	assert.Equal(t, "node", ns)
	assert.Equal(t, "http-request", id)

	// Identifiers may themselves contain separators
	ns, id = SplitKey("api:https://api.example.com/v1")
	assert.Equal(t, "api", ns)
	assert.Equal(t, "https://api.example.com/v1", id)

	ns, id = SplitKey("bare")
	assert.Equal(t, "", ns)
	assert.Equal(t, "bare", id)
}

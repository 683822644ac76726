package resilience

// DegradationLevel summarizes platform health from the share of
// circuits that are not closed.
type DegradationLevel int

const (
	// LevelNormal - all circuits closed
	LevelNormal DegradationLevel = iota
	// LevelPartial - some circuits are open but most traffic flows
	LevelPartial
	// LevelSevere - at least half of all circuits are open
	LevelSevere
	// LevelCritical - most circuits are open
	LevelCritical
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelPartial:
		return "PARTIAL"
	case LevelSevere:
		return "SEVERE"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Degradation computes the current degradation level across all
// tracked circuits.
func (r *CircuitRegistry) Degradation() DegradationLevel {
	statuses := r.GetAllStatuses()
	return degradationFrom(statuses)
}

func degradationFrom(statuses []Status) DegradationLevel {
	if len(statuses) == 0 {
		return LevelNormal
	}

	notClosed := 0
	for _, s := range statuses {
		if s.State != StateClosed.String() {
			notClosed++
		}
	}
	if notClosed == 0 {
		return LevelNormal
	}

	ratio := float64(notClosed) / float64(len(statuses))
	switch {
	case ratio >= 0.75:
		return LevelCritical
	case ratio >= 0.5:
		return LevelSevere
	default:
		return LevelPartial
	}
}

package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDegradationLevelString(t *testing.T) {
	assert.Equal(t, "NORMAL", LevelNormal.String())
	assert.Equal(t, "PARTIAL", LevelPartial.String())
	assert.Equal(t, "SEVERE", LevelSevere.String())
	assert.Equal(t, "CRITICAL", LevelCritical.String())
}

func TestDegradationFrom(t *testing.T) {
	closed := Status{State: StateClosed.String()}
	open := Status{State: StateOpen.String()}
	halfOpen := Status{State: StateHalfOpen.String()}

	tests := []struct {
		name     string
		statuses []Status
		want     DegradationLevel
	}{
		{"no circuits tracked", nil, LevelNormal},
		{"all closed", []Status{closed, closed, closed}, LevelNormal},
		{"one of four open", []Status{open, closed, closed, closed}, LevelPartial},
		{"half open", []Status{open, halfOpen, closed, closed}, LevelSevere},
		{"three of four open", []Status{open, open, open, closed}, LevelCritical},
		{"everything open", []Status{open, open}, LevelCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, degradationFrom(tt.statuses))
		})
	}
}

func TestRegistry_Degradation(t *testing.T) {
	r := NewCircuitRegistry(testRegistryConfig(), nil, nil)
	assert.Equal(t, LevelNormal, r.Degradation())

	for i := 0; i < 4; i++ {
		r.RecordSuccess(NodeKey(fmt.Sprintf("healthy-%d", i)))
	}
	assert.Equal(t, LevelNormal, r.Degradation())

	for i := 0; i < 3; i++ {
		r.RecordFailure(ServiceKey("flaky"), errors.New("boom"))
	}
	assert.Equal(t, LevelPartial, r.Degradation())

	r.ForceOpen(NodeKey("healthy-0"))
	r.ForceOpen(NodeKey("healthy-1"))
	assert.Equal(t, LevelSevere, r.Degradation())

	r.ForceOpen(NodeKey("healthy-2"))
	assert.Equal(t, LevelCritical, r.Degradation())
}

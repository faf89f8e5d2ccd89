package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveFloorLowersOnScopeLanguage(t *testing.T) {
	cases := []string{
		"I need less work than quoted",
		"just a BASIC service please",
		"partial job is fine",
		"do it without the fittings",
		"I will provide materials myself",
		"make it a short visit",
	}
	for _, message := range cases {
		got := EffectiveFloor(message, 700, 1000)
		assert.Equal(t, 640.0, got, "message %q", message)
	}
}

func TestEffectiveFloorKeepsBaseMinOtherwise(t *testing.T) {
	assert.Equal(t, 700.0, EffectiveFloor("can you do it for 800?", 700, 1000))
	assert.Equal(t, 700.0, EffectiveFloor("", 700, 1000))
}

func TestEffectiveFloorNeverBelowEightyPercent(t *testing.T) {
	// Wide corridor: the 0.8*baseMin clamp wins over the corridor formula.
	got := EffectiveFloor("basic please", 100, 5000)
	assert.Equal(t, 80.0, got)
}

func TestAbuseGuard(t *testing.T) {
	var g AbuseGuard
	low := 650.0
	fine := 720.0

	for i := 1; i <= 3; i++ {
		assert.False(t, g.Observe(&low, 700))
		assert.Equal(t, i, g.Strikes())
	}
	assert.False(t, g.Observe(&fine, 700))
	assert.Equal(t, 0, g.Strikes())

	for i := 0; i < 3; i++ {
		assert.False(t, g.Observe(&low, 700))
	}
	assert.True(t, g.Observe(&low, 700))
}

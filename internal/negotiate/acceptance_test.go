package negotiate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColdStartProbabilityStaysInBounds(t *testing.T) {
	model := FitAcceptance(nil, 700, 1000)
	require.False(t, model.Fitted())

	for price := 700.0; price <= 1000.0; price += 7.5 {
		p := model.Probability(price)
		assert.GreaterOrEqual(t, p, 0.0, "price %.2f", price)
		assert.LessOrEqual(t, p, 1.0, "price %.2f", price)
	}
	// The heuristic is clamped away from certainty at both ends.
	assert.GreaterOrEqual(t, model.Probability(1000), 0.01)
	assert.LessOrEqual(t, model.Probability(700), 0.99)
}

func TestColdStartDecaysTowardListPrice(t *testing.T) {
	model := FitAcceptance(nil, 700, 1000)
	assert.Greater(t, model.Probability(750), model.Probability(950))
}

func TestFitSkippedBelowMinimumRows(t *testing.T) {
	outcomes := make([]Outcome, minFitRows-1)
	for i := range outcomes {
		outcomes[i] = Outcome{Price: 800, Accepted: true}
	}
	model := FitAcceptance(outcomes, 700, 1000)
	assert.False(t, model.Fitted())
}

func TestFitLearnsPriceDirection(t *testing.T) {
	// Cheap offers were accepted, expensive ones were not.
	var outcomes []Outcome
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, Outcome{Price: 720, Accepted: true})
		outcomes = append(outcomes, Outcome{Price: 980, Accepted: false})
	}
	model := FitAcceptance(outcomes, 700, 1000)
	require.True(t, model.Fitted())
	assert.Greater(t, model.Probability(720), model.Probability(980))

	for price := 700.0; price <= 1000.0; price += 10 {
		p := model.Probability(price)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	var outcomes []Outcome
	for i := 0; i < 6; i++ {
		outcomes = append(outcomes, Outcome{Price: 700 + float64(i)*40, Accepted: i%2 == 0})
		outcomes = append(outcomes, Outcome{Price: 900 - float64(i)*25, Accepted: i%3 == 0})
	}
	first := FitAcceptance(outcomes, 700, 1000)
	second := FitAcceptance(outcomes, 700, 1000)
	assert.Equal(t, first, second)
}

func TestFitDegenerateCorridorFallsBack(t *testing.T) {
	outcomes := make([]Outcome, minFitRows)
	for i := range outcomes {
		outcomes[i] = Outcome{Price: 500, Accepted: true}
	}
	model := FitAcceptance(outcomes, 500, 500)
	assert.False(t, model.Fitted())
	p := model.Probability(500)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

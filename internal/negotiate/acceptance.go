package negotiate

import "math"

const (
	// Fitting is skipped below this many labeled rows; the cold-start curve
	// takes over instead.
	minFitRows      = 12
	fitIterations   = 400
	fitLearningRate = 0.5

	coldStartSteepness = 8.0
	coldStartMidpoint  = 0.55
)

// Outcome is one historical price decision for a product: the price the
// seller put on the table and whether the buyer ultimately took it.
type Outcome struct {
	Price    float64
	Accepted bool
}

// AcceptanceModel estimates P(accept | price) over a product's price corridor.
// A fitted model is a two-parameter logistic curve on the normalized price;
// without enough history it falls back to a fixed bell-shaped heuristic.
type AcceptanceModel struct {
	a, b   float64
	lo, hi float64
	fitted bool
}

// FitAcceptance fits the logistic curve by full-batch gradient descent over
// the given outcomes, normalizing prices into [0,1] against the product
// bounds. Deterministic for identical input; never fails — insufficient or
// degenerate history yields the cold-start model.
func FitAcceptance(outcomes []Outcome, minPrice, listPrice float64) AcceptanceModel {
	model := AcceptanceModel{lo: minPrice, hi: listPrice}
	if len(outcomes) < minFitRows || listPrice <= minPrice {
		return model
	}

	span := math.Max(1e-6, listPrice-minPrice)
	z := make([]float64, len(outcomes))
	y := make([]float64, len(outcomes))
	for i, outcome := range outcomes {
		z[i] = (outcome.Price - minPrice) / span
		if outcome.Accepted {
			y[i] = 1
		}
	}

	var a, b float64
	n := float64(len(z))
	for iter := 0; iter < fitIterations; iter++ {
		var da, db float64
		for i := range z {
			pred := sigmoid(a + b*z[i])
			da += pred - y[i]
			db += (pred - y[i]) * z[i]
		}
		a -= fitLearningRate * da / n
		b -= fitLearningRate * db / n
	}

	model.a, model.b, model.fitted = a, b, true
	return model
}

// Probability returns P(accept | price), always inside [0,1].
func (m AcceptanceModel) Probability(price float64) float64 {
	span := math.Max(1e-6, m.hi-m.lo)
	x := (price - m.lo) / span
	if m.fitted {
		return sigmoid(m.a + m.b*x)
	}
	// Cold start: near-certain acceptance toward the floor, tapering sharply
	// past ~55% of the corridor.
	return clamp(sigmoid(-coldStartSteepness*(x-coldStartMidpoint)), 0.01, 0.99)
}

// Fitted reports whether the model came from history rather than the
// cold-start heuristic.
func (m AcceptanceModel) Fitted() bool {
	return m.fitted
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

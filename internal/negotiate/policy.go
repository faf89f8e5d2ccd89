package negotiate

import (
	"math"
	"math/rand"
	"time"
)

const (
	exploreEpsilon      = 0.10
	exploreBandFraction = 0.15
	revenueGridSteps    = 40
	smoothingWeight     = 0.5

	// How quickly the seller drifts toward the floor across turns. Each
	// counter concedes concessionRate*concessionFraction of the remaining
	// distance.
	sellerConcessionRate = 0.30
	concessionFraction   = 0.15
)

// OfferPolicy picks the seller's next counter-offer. The random source is
// injected per session so exploration is reproducible under test.
type OfferPolicy struct {
	rng *rand.Rand
}

func NewOfferPolicy(rng *rand.Rand) *OfferPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &OfferPolicy{rng: rng}
}

// ChooseCounter returns the next price to quote, always within
// [floor, listPrice] and rounded to 2 decimal places.
//
// With probability exploreEpsilon (and a buyer offer on the table) it samples
// a band just above the offer; otherwise it grid-searches the price that
// maximizes expected revenue price*P(accept). Either way the pick is smoothed
// 50/50 against the standing offer and nudged a fixed fraction toward the
// floor so the conversation reads as gradual concession.
func (p *OfferPolicy) ChooseCounter(floor, listPrice, currentOffer float64, userOffer *float64, model AcceptanceModel) float64 {
	var chosen float64
	if userOffer != nil && p.rng.Float64() < exploreEpsilon {
		bandLo := math.Max(floor, *userOffer)
		bandHi := clamp(*userOffer+exploreBandFraction*(listPrice-floor), floor, listPrice)
		if bandHi < bandLo {
			bandHi = bandLo
		}
		chosen = bandLo + p.rng.Float64()*(bandHi-bandLo)
	} else {
		chosen = maxExpectedRevenue(floor, listPrice, model)
	}

	smoothed := smoothingWeight*currentOffer + (1-smoothingWeight)*chosen
	conceded := smoothed + sellerConcessionRate*concessionFraction*(floor-smoothed)
	return round2(clamp(conceded, floor, listPrice))
}

func maxExpectedRevenue(lo, hi float64, model AcceptanceModel) float64 {
	if hi <= lo {
		return lo
	}
	step := (hi - lo) / float64(revenueGridSteps-1)
	bestPrice, bestRevenue := lo, -1.0
	for i := 0; i < revenueGridSteps; i++ {
		price := lo + float64(i)*step
		revenue := price * model.Probability(price)
		if revenue > bestRevenue {
			bestRevenue, bestPrice = revenue, price
		}
	}
	return bestPrice
}

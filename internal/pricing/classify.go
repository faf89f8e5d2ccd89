package pricing

import (
	"math"
	"strings"
)

type ServiceType string

const (
	ServicePlumbing   ServiceType = "plumbing"
	ServiceElectrical ServiceType = "electrical"
	ServiceCleaning   ServiceType = "cleaning"
	ServiceHVAC       ServiceType = "hvac"
	ServiceAppliance  ServiceType = "appliance"
)

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

type Strategy string

const (
	StrategyAggressive   Strategy = "aggressive"
	StrategyConservative Strategy = "conservative"
	StrategyModerate     Strategy = "moderate"
)

// Context is the price anchor inferred from a message when the caller did not
// supply product bounds up front.
type Context struct {
	ServiceType ServiceType
	Complexity  Complexity
	BasePrice   float64
	MinPrice    float64
}

var serviceKeywords = []struct {
	service  ServiceType
	keywords []string
}{
	{ServicePlumbing, []string{"tap", "pipe", "leak", "toilet", "drain", "plumb"}},
	{ServiceElectrical, []string{"switch", "socket", "outlet", "wiring", "breaker", "electric", "fan", "light"}},
	{ServiceCleaning, []string{"clean", "cleanup", "dust", "carpet", "wash"}},
	{ServiceHVAC, []string{"ac", "hvac", "cooling", "refrigerant", "compressor", "air"}},
	{ServiceAppliance, []string{"fridge", "refrigerator", "washing", "washer", "dishwasher", "microwave", "appliance"}},
}

var (
	complexKeywords = []string{"major", "complete", "complex", "renovation", "installation", "upgrade"}
	simpleKeywords  = []string{"simple", "basic", "minor", "small", "quick", "easy"}
	urgencyKeywords = []string{"urgent", "asap", "immediately"}
)

var basePrices = map[ServiceType]map[Complexity]float64{
	ServicePlumbing:   {ComplexitySimple: 300, ComplexityMedium: 800, ComplexityComplex: 2000},
	ServiceElectrical: {ComplexitySimple: 250, ComplexityMedium: 600, ComplexityComplex: 1500},
	ServiceCleaning:   {ComplexitySimple: 400, ComplexityMedium: 800, ComplexityComplex: 1500},
	ServiceHVAC:       {ComplexitySimple: 350, ComplexityMedium: 1200, ComplexityComplex: 3000},
	ServiceAppliance:  {ComplexitySimple: 300, ComplexityMedium: 800, ComplexityComplex: 1800},
}

const (
	defaultBasePrice = 500
	minPriceFraction = 0.7
)

// Classify infers a service-type/complexity anchor from message keywords.
// Unrecognized messages fall back to a medium plumbing job.
func Classify(message string) Context {
	m := strings.ToLower(message)

	service := ServicePlumbing
	for _, entry := range serviceKeywords {
		if containsAny(m, entry.keywords) {
			service = entry.service
			break
		}
	}

	complexity := ComplexityMedium
	if containsAny(m, complexKeywords) {
		complexity = ComplexityComplex
	} else if containsAny(m, simpleKeywords) {
		complexity = ComplexitySimple
	}

	base := float64(defaultBasePrice)
	if byComplexity, ok := basePrices[service]; ok {
		if price, ok := byComplexity[complexity]; ok {
			base = price
		}
	}

	return Context{
		ServiceType: service,
		Complexity:  complexity,
		BasePrice:   base,
		MinPrice:    round2(base * minPriceFraction),
	}
}

// SuggestStrategy picks a discount posture from urgency and complexity and
// returns the seed counter-offer it implies. Urgent buyers get the smallest
// discount; simple jobs get the largest.
func SuggestStrategy(message string, ctx Context) (Strategy, float64) {
	var strategy Strategy
	var discount float64
	switch {
	case containsAny(strings.ToLower(message), urgencyKeywords):
		strategy, discount = StrategyConservative, 0.05
	case ctx.Complexity == ComplexitySimple:
		strategy, discount = StrategyAggressive, 0.15
	default:
		strategy, discount = StrategyModerate, 0.10
	}
	suggested := math.Max(ctx.MinPrice, round2(ctx.BasePrice*(1-discount)))
	return strategy, suggested
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

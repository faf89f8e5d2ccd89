package negotiate

import (
	"math"
	"strings"
)

// Scope-reduction language lets the floor drop for as long as the buyer keeps
// using it; the first turn without it restores the original minimum.
var scopeKeywords = []string{
	"less work",
	"smaller job",
	"basic",
	"partial",
	"only",
	"exclude",
	"without",
	"i will provide materials",
	"short visit",
}

const (
	scopeFloorFraction  = 0.8
	scopeCorridorFactor = 0.2
)

// EffectiveFloor computes this turn's floor from the buyer's message. The
// base minimum itself is never mutated.
func EffectiveFloor(message string, baseMin, listPrice float64) float64 {
	m := strings.ToLower(message)
	for _, keyword := range scopeKeywords {
		if strings.Contains(m, keyword) {
			lowered := math.Max(scopeFloorFraction*baseMin, baseMin-scopeCorridorFactor*(listPrice-baseMin))
			return round2(lowered)
		}
	}
	return baseMin
}

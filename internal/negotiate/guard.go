package negotiate

// Strikes at or past this count force a handoff to a human, regardless of how
// close the lowball offers were to the floor.
const handoffStrikeThreshold = 4

// AbuseGuard counts consecutive buyer offers below the effective floor.
type AbuseGuard struct {
	strikes int
}

// Observe updates the strike counter for one turn and reports whether the
// session must hand off. An absent offer or one at/above the floor resets
// the counter.
func (g *AbuseGuard) Observe(offer *float64, floor float64) bool {
	if offer != nil && *offer < floor {
		g.strikes++
	} else {
		g.strikes = 0
	}
	return g.strikes >= handoffStrikeThreshold
}

func (g *AbuseGuard) Strikes() int {
	return g.strikes
}

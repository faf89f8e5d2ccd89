package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction patterns are tried in a fixed order; the first match wins.
// Order matters: "pay 500 max" must bind through the "only/max" pattern
// before the bare-number fallback sees it.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:₹|\$|\brs\.?\s)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:rupees?|rs\.?|inr)\b`),
	regexp.MustCompile(`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:only|max|maximum)\b`),
	regexp.MustCompile(`(?i)(?:offer|pay|budget)\s*(?:is|of)?\s*(?:₹|\$)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`),
	regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)`),
}

// ExtractPrice parses the first numeric offer out of free text. The second
// return value is false when the message carries no usable number.
func ExtractPrice(text string) (float64, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}

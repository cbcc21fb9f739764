package utils

import (
	"strconv"
	"strings"
)

// ParseAmount extracts the numeric value from a free-form currency string
// such as "¥100,000" or "$1,250.50". Anything that does not parse to a
// number, including an empty string, yields 0; aggregation treats bad data
// as zero rather than failing.
func ParseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	amount, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return amount
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain number", "1500", 1500},
		{"yen with separators", "¥100,000", 100000},
		{"dollar with cents", "$1,234.56", 1234.56},
		{"currency suffix", "150000 JPY", 150000},
		{"negative amount", "-500", -500},
		{"empty string", "", 0},
		{"no digits", "TBD", 0},
		{"garbage", "abc,def", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.input))
		})
	}
}

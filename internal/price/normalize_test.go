package price

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_FormatFamilies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
	}{
		{"293.79", 293.79},
		{"293.200", 293.20},
		{"293,200.50", 293200.50},
		{"Bs 293,79", 293.79},
		{"Bs. 293,79", 293.79},
		{"1.234.567,89", 1234567.89},
		{"1.234.567", 1234567},
		{"1234,567", 1234567},
		{"1,234,567", 1234567},
		{"1234,5", 1234.5},
		{"  42 ", 42},
		{"1 234,50", 1234.50},
		{"USD 1,234.5", 1234.5},
		{"0.5", 0.5},
		{".5", 0.5},
		{"Bs .50", 0.5},
		{",75", 0.75},
		{"Bs.293,79", 293.79},
		{"$.99", 0.99},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoErrorf(t, err, "input %q", tc.in)
		require.InDeltaf(t, tc.want, got, 1e-9, "input %q", tc.in)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "abc", "Bs", "-293.79", "0", "0,00", "...", "1.2.3", "1,2,3"} {
		_, err := Parse(in)
		require.ErrorIsf(t, err, ErrInvalidPriceFormat, "input %q", in)
	}
}

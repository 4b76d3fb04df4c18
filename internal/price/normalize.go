package price

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidPriceFormat is returned when a quote string cannot be turned into
// a finite, strictly positive number.
var ErrInvalidPriceFormat = errors.New("invalid price format")

var (
	// 1-3 digits, one separator, 2-3 digits: "293.79", "293,200".
	shortDecimal = regexp.MustCompile(`^\d{1,3}[.,]\d{2,3}$`)
	// dotted thousands groups with optional comma decimals: "1.234.567,89".
	dotThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+(,\d+)?$`)
	// comma thousands groups with nothing else: "1234,567", "1,234,567".
	commaThousands = regexp.MustCompile(`^\d+(,\d{3})+$`)
)

// Parse turns a marketplace price string into a float64.
//
// Marketplaces disagree on separators, so the input may look like "293.79",
// "293,79", "1.234,50", "293,200.50" or carry a currency tag ("Bs 293,79").
// The rules below are checked in order and the first one that matches wins.
func Parse(s string) (float64, error) {
	if strings.Contains(s, "-") {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPriceFormat, s)
	}

	clean := strip(s)
	if clean == "" {
		return 0, fmt.Errorf("%w: %q has no digits", ErrInvalidPriceFormat, s)
	}

	hasDot := strings.Contains(clean, ".")
	hasComma := strings.Contains(clean, ",")

	var canon string
	switch {
	case hasDot && hasComma:
		// the separator seen last is the decimal one
		if strings.LastIndex(clean, ",") > strings.LastIndex(clean, ".") {
			canon = strings.ReplaceAll(clean, ".", "")
			canon = strings.Replace(canon, ",", ".", 1)
		} else {
			canon = strings.ReplaceAll(clean, ",", "")
		}
	case shortDecimal.MatchString(clean):
		// "293.200" reads as 293.20, not 293200
		canon = strings.Replace(clean, ",", ".", 1)
	case dotThousands.MatchString(clean):
		canon = strings.ReplaceAll(clean, ".", "")
		canon = strings.Replace(canon, ",", ".", 1)
	case commaThousands.MatchString(clean):
		canon = strings.ReplaceAll(clean, ",", "")
	case hasComma && strings.Count(clean, ",") == 1:
		canon = strings.Replace(clean, ",", ".", 1)
	default:
		canon = clean
	}

	v, err := strconv.ParseFloat(canon, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidPriceFormat, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive number", ErrInvalidPriceFormat, s)
	}
	return v, nil
}

// strip drops everything except digits and separators. Whitespace between
// digit groups ("1 234,50") is treated as grouping and removed. A separator
// glued to a leading word ("Bs.293,79") is an abbreviation dot and is dropped;
// any other leading separator is a decimal point, so ".5" becomes "0.5".
func strip(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	var prev rune
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			if b.Len() == 0 && unicode.IsLetter(prev) {
				break
			}
			b.WriteRune(r)
		}
		prev = r
	}
	out := strings.TrimRight(b.String(), ".,")
	if out != "" && (out[0] == '.' || out[0] == ',') {
		out = "0" + out
	}
	return out
}

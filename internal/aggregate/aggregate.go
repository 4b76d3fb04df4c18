package aggregate

import (
	"errors"
	"math"
	"sort"

	"fxrate/internal/provider"
)

// Cheapest is how many of the lowest quotes feed the weighted average.
const Cheapest = 3

// ErrNoPrices is returned when there is nothing to reduce.
var ErrNoPrices = errors.New("no prices to aggregate")

// Method names which rule produced a consensus price.
type Method string

const (
	MethodWeighted Method = "weighted"
	MethodMean     Method = "mean"
	MethodMedian   Method = "median"
)

// Consensus reduces one source's ascending quote list to a single price.
//
// With at least Cheapest quotes, the cheapest Cheapest are averaged weighted
// by quantity when every one of them advertises a positive quantity; when the
// quantity data is missing or thin the plain mean of the same quotes is used.
// With fewer quotes the median of what is there is returned.
func Consensus(quotes []provider.Quote) (float64, Method, error) {
	if len(quotes) == 0 {
		return 0, "", ErrNoPrices
	}
	if len(quotes) < Cheapest {
		prices := make([]float64, len(quotes))
		for i, q := range quotes {
			prices[i] = q.Price
		}
		m, err := Median(prices)
		return m, MethodMedian, err
	}

	k := min(Cheapest, len(quotes))
	top := quotes[:k]

	var weighted, weight, sum float64
	positive := 0
	for _, q := range top {
		sum += q.Price
		if q.Quantity > 0 {
			positive++
			weighted += q.Price * q.Quantity
			weight += q.Quantity
		}
	}
	if positive >= Cheapest && weight > 0 {
		return weighted / weight, MethodWeighted, nil
	}
	return sum / float64(k), MethodMean, nil
}

// Median returns the median of xs. Non-finite values are ignored; an even
// count averages the two middle values. xs is not modified.
func Median(xs []float64) (float64, error) {
	vals := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return 0, ErrNoPrices
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], nil
	}
	return (vals[mid-1] + vals[mid]) / 2, nil
}

// Round2 rounds to two decimals, the precision rates are published with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

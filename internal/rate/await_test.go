package rate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fxrate/internal/provider"
	"fxrate/internal/retry"
)

func TestAwaitResults_BufferedResultSurvivesDeadline(t *testing.T) {
	t.Parallel()

	// Arrange: the deadline has passed and a result is already buffered
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	ch := make(chan sourceResult, 2)
	ch <- sourceResult{index: 1, result: retry.Result{Source: "binance", Quotes: []provider.Quote{{Price: 292}}}}

	// Act
	var got []int
	for range 50 {
		got = got[:0]
		awaitResults(ctx, ch, 2, func(r sourceResult) { got = append(got, r.index) })
		// Assert
		require.Equal(t, []int{1}, got)
		ch <- sourceResult{index: 1}
	}
}

func TestAwaitResults_StopsWhenAllArrived(t *testing.T) {
	t.Parallel()

	ch := make(chan sourceResult, 2)
	ch <- sourceResult{index: 0}
	ch <- sourceResult{index: 1}

	var n int
	awaitResults(t.Context(), ch, 2, func(sourceResult) { n++ })
	require.Equal(t, 2, n)
}

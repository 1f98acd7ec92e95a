package stirling

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartialBernoulliSum(t *testing.T) {
	// sum(choose(5,i), i=0..2) = 1 + 5 + 10 = 16
	require.Equal(t, 16.0, PartialBernoulliSum(5, 2))
	// k == n: full sum = 2^n
	require.InDelta(t, math.Pow(2, 5), PartialBernoulliSum(5, 5), 1e-9)
	// k == 0: just the empty choice
	require.Equal(t, 1.0, PartialBernoulliSum(5, 0))
}

func TestTableNoDivisionByZero(t *testing.T) {
	tab := NewTable()
	// V..J length 0 or CDR3 length 0 must not panic or produce NaN/Inf.
	p := tab.PAtMostMDistinctInSampleOfXFromN(0, 0, 0)
	require.False(t, math.IsInf(p, 0))
	require.False(t, math.IsNaN(p))
}

func TestTableMonotoneAndBounded(t *testing.T) {
	tab := NewTable()
	row := tab.PAtMostMDistinctInSampleOfXFromN(3, 10, 50)
	require.GreaterOrEqual(t, row, 0.0)
	require.LessOrEqual(t, row, 1.0)

	// CDF is monotone non-decreasing in m.
	prev := 0.0
	for m := 0; m <= 10; m++ {
		v := tab.PAtMostMDistinctInSampleOfXFromN(m, 10, 50)
		require.GreaterOrEqual(t, v, prev-1e-9)
		prev = v
	}
}

func TestTableCached(t *testing.T) {
	tab := NewTable()
	a := tab.PAtMostMDistinctInSampleOfXFromN(2, 5, 20)
	b := tab.PAtMostMDistinctInSampleOfXFromN(2, 5, 20)
	require.Equal(t, a, b)
}

// TestTableConcurrentEnsureRow exercises the Join Engine's usage pattern:
// one shared Table queried for many distinct (n, x) pairs from concurrent
// goroutines. Run with -race to catch a regression of the concurrent map
// write this guards against.
func TestTableConcurrentEnsureRow(t *testing.T) {
	tab := NewTable()
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for x := 1; x <= 5; x++ {
				tab.PAtMostMDistinctInSampleOfXFromN(x, x, 10+g%3)
			}
		}()
	}
	wg.Wait()
}

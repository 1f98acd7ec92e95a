package workpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	out := Map(items, 4, func(_ int, n int) int { return n * n })
	require.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49}, out)
}

func TestMapEmpty(t *testing.T) {
	out := Map[int, int](nil, 2, func(_ int, n int) int { return n })
	require.Nil(t, out)
}

func TestMapErrCollectsErrors(t *testing.T) {
	items := []int{1, 2, 3, 4}
	out, errs := MapErr(items, 2, func(_ int, n int) (int, error) {
		if n%2 == 0 {
			return 0, errors.New("even")
		}
		return n, nil
	})
	require.Equal(t, []int{1, 0, 3, 0}, out)
	require.Len(t, errs, 2)
}

package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexCoordOrigin(t *testing.T) {
	x, y := HexCoord(0, 1.0)
	require.Equal(t, 0.0, x)
	require.Equal(t, 0.0, y)
}

func TestHexCoordFirstRingDistinct(t *testing.T) {
	seen := make(map[[2]float64]bool)
	for n := 1; n <= 6; n++ {
		x, y := HexCoord(n, 1.0)
		seen[[2]float64{x, y}] = true
	}
	require.Len(t, seen, 6)
}

func TestPackCirclesNoOverlap(t *testing.T) {
	radii := []float64{5, 3, 2, 1}
	centers := PackCircles(radii, 42)
	require.Len(t, centers, len(radii))
	require.Equal(t, [2]float64{0, 0}, centers[0])

	for i := 0; i < len(centers); i++ {
		for j := i + 1; j < len(centers); j++ {
			dx := centers[i][0] - centers[j][0]
			dy := centers[i][1] - centers[j][1]
			d := dx*dx + dy*dy
			minD := radii[i] + radii[j]
			require.GreaterOrEqual(t, d, minD*minD-1e-6)
		}
	}
}

func TestPackCirclesEmpty(t *testing.T) {
	require.Nil(t, PackCircles(nil, 1))
}

func TestPackCirclesDeterministic(t *testing.T) {
	radii := []float64{4, 2, 1}
	a := PackCircles(radii, 7)
	b := PackCircles(radii, 7)
	require.Equal(t, a, b)
}

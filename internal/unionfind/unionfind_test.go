package unionfind

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinAndClassID(t *testing.T) {
	u := New(5)
	require.True(t, u.Join(0, 1))
	require.True(t, u.Join(1, 2))
	require.False(t, u.Join(0, 2)) // already joined

	require.Equal(t, u.ClassID(0), u.ClassID(2))
	require.NotEqual(t, u.ClassID(0), u.ClassID(3))
}

func TestTransitiveClosure(t *testing.T) {
	// join(a,b) and join(b,c) => class_id(a) == class_id(c)
	u := New(3)
	u.Join(0, 1)
	u.Join(1, 2)
	require.Equal(t, u.ClassID(0), u.ClassID(2))
}

func TestOrbits(t *testing.T) {
	u := New(6)
	u.Join(0, 2)
	u.Join(2, 4)
	u.Join(1, 3)

	orbits := u.AllOrbits()
	require.Len(t, orbits, 3) // {0,2,4}, {1,3}, {5}

	found := false
	for _, o := range orbits {
		if len(o) == 3 {
			require.ElementsMatch(t, []int{0, 2, 4}, o)
			found = true
		}
	}
	require.True(t, found)
}

func TestSame(t *testing.T) {
	u := New(4)
	require.False(t, u.Same(0, 1))
	u.Join(0, 1)
	require.True(t, u.Same(0, 1))
	require.True(t, u.Same(1, 0))
}

// Package unionfind provides a disjoint-set data structure used as the
// equivalence relation over exact subclonotypes.
package unionfind

// UnionFind is a disjoint-set structure with path compression and
// union by size. The zero value is not usable; create one with New.
type UnionFind struct {
	parent []int
	size   []int
}

// New creates a UnionFind over n elements, each initially its own class.
func New(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

// Len returns the number of elements.
func (u *UnionFind) Len() int {
	return len(u.parent)
}

// ClassID returns the representative of the class containing i.
func (u *UnionFind) ClassID(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]] // path halving
		i = u.parent[i]
	}
	return i
}

// Join merges the classes containing a and b. Returns true if this
// actually merged two distinct classes.
func (u *UnionFind) Join(a, b int) bool {
	ra, rb := u.ClassID(a), u.ClassID(b)
	if ra == rb {
		return false
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	return true
}

// Same reports whether a and b are in the same class.
func (u *UnionFind) Same(a, b int) bool {
	return u.ClassID(a) == u.ClassID(b)
}

// OrbitReps returns the representative of each class, ordered by each
// class's smallest member (not by representative index).
func (u *UnionFind) OrbitReps() []int {
	seen := make(map[int]bool)
	var reps []int
	for i := range u.parent {
		r := u.ClassID(i)
		if !seen[r] {
			seen[r] = true
			reps = append(reps, r)
		}
	}
	return reps
}

// Orbit returns all members of the class represented by rep, in
// increasing index order. rep need not itself be the class
// representative; the class containing rep is returned.
func (u *UnionFind) Orbit(rep int) []int {
	root := u.ClassID(rep)
	var members []int
	for i := range u.parent {
		if u.ClassID(i) == root {
			members = append(members, i)
		}
	}
	return members
}

// AllOrbits groups every element by its class representative and
// returns the groups in increasing order of their smallest member.
func (u *UnionFind) AllOrbits() [][]int {
	groups := make(map[int][]int)
	for i := range u.parent {
		r := u.ClassID(i)
		groups[r] = append(groups[r], i)
	}
	reps := u.OrbitReps()
	out := make([][]int, len(reps))
	for idx, r := range reps {
		out[idx] = groups[r]
	}
	return out
}

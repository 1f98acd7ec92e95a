// Package lattice provides hexagonal lattice coordinates and greedy
// disk packing. These are pure-geometry helpers consumed by the
// out-of-scope plot collaborator; they have no rendering dependency of
// their own.
package lattice

import "math"

// HexCoord returns the center of the nth disk (0-indexed) of radius r
// in a counterclockwise spiral of lattice-packed hexagonal rings,
// starting at the origin and proceeding first to the right.
func HexCoord(n int, r float64) (x, y float64) {
	if n == 0 {
		return 0, 0
	}

	// Which ring ("hid") is n on, and which position ("hpos") within it?
	hid := 1
	k := 6
	hpos := n - 1
	for hpos >= k {
		hpos -= k
		hid++
		k += 6
	}

	c := r * math.Sqrt(3) / 2 // center-to-center distance / 2
	x = float64(hid) * 2 * c
	y = 0

	p := hpos
	if p > 0 {
		p = walkFace(&x, &y, -c, 1.5*r, hid, p)
	}
	if p > 0 {
		p = walkFace(&x, &y, -2*c, 0, hid, p)
	}
	if p > 0 {
		p = walkFace(&x, &y, -c, -1.5*r, hid, p)
	}
	if p > 0 {
		p = walkFace(&x, &y, c, -1.5*r, hid, p)
	}
	if p > 0 {
		p = walkFace(&x, &y, 2*c, 0, hid, p)
	}
	if p > 0 {
		walkFace(&x, &y, c, 1.5*r, hid-1, p)
	}

	x *= 2 / math.Sqrt(3)
	y *= 2 / math.Sqrt(3)
	return x, y
}

// walkFace advances (x,y) by (dx,dy) per step for up to steps steps,
// decrementing remaining and stopping early if it reaches zero.
func walkFace(x, y *float64, dx, dy float64, steps, remaining int) int {
	for i := 0; i < steps; i++ {
		*x += dx
		*y += dy
		remaining--
		if remaining == 0 {
			break
		}
	}
	return remaining
}

// lcgState is a minimal linear congruential generator so disk packing
// is deterministic given a seed, independent of math/rand's global
// state or version.
type lcgState int64

func (s *lcgState) next() int64 {
	*s = lcgState(int64(6364136223846793005) * int64(*s) + 1442695040888963407)
	return int64(*s)
}

// unitInterval maps an int64 draw to [-1, 1).
func unitInterval(v int64) float64 {
	m := v % 1_000_000
	if m < 0 {
		m = -m
	}
	return 2*float64(m)/1_000_000 - 1
}

// PackCircles greedily places circles of the given radii so that none
// overlap, returning their centers. The first circle is centered at
// the origin; each subsequent circle is placed at the non-overlapping
// position closest to the origin among 100,000 random samples drawn
// around the already-packed cluster (sampling again if none fits).
// Deterministic for a fixed seed.
func PackCircles(radii []float64, seed int64) [][2]float64 {
	if len(radii) == 0 {
		return nil
	}

	centers := make([][2]float64, 0, len(radii))
	centers = append(centers, [2]float64{0, 0})
	bigR := radii[0]

	const sample = 100_000
	const mul = 1.5

	state := lcgState(seed)

	for i := 1; i < len(radii); i++ {
		type candidate struct {
			distSq, x, y float64
		}
		var best candidate
		found := false

		for !found {
			for s := 0; s < sample; s++ {
				r1 := unitInterval(state.next()) * (bigR + radii[i]) * mul
				r2 := unitInterval(state.next()) * (bigR + radii[i]) * mul

				ok := true
				for k := 0; k < i; k++ {
					dx := centers[k][0] - r1
					dy := centers[k][1] - r2
					d := math.Sqrt(dx*dx + dy*dy)
					if d < radii[i]+radii[k] {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
				distSq := r1*r1 + r2*r2
				if !found || distSq < best.distSq {
					best = candidate{distSq: distSq, x: r1, y: r2}
					found = true
				}
			}
		}

		centers = append(centers, [2]float64{best.x, best.y})
		reach := math.Sqrt(centers[i][0]*centers[i][0] + centers[i][1]*centers[i][1])
		if radii[i]+reach > bigR {
			bigR = radii[i] + reach
		}
	}

	return centers
}

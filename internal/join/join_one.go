package join

import (
	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/refdata"
	"github.com/clonoweave/clonoweave/internal/stirling"
)

// PotentialJoin is the diagnostic record emitted for every candidate
// pair that survives every cheap rejection and passes the score
// threshold, mirroring the original source's PotentialJoin struct. The
// DuckDB-backed sink in internal/protoxchg persists these for offline
// review.
type PotentialJoin struct {
	K1, K2 int
	NRefs  int
	CD     int
	Diffs  int
	BCs1, BCs2 []string
	Shares, Indeps []int
	Score  float64
	Err    bool
	P1     float64
	Mult   float64
}

// JoinOne decides whether CloneInfo k1 and k2 should be merged into
// one clonotype. It is a direct port of the original source's
// join_one: every early return corresponds to one of its cheap
// rejections, evaluated in the same order so the same candidates are
// pruned before the expensive probability computation runs.
func JoinOne(isBCR bool, k1, k2 int, infos []CloneInfo, ref *refdata.Index, opt cloneconfig.JoinAlgOpt, filt cloneconfig.ClonoFiltOpt, printOpt cloneconfig.JoinPrintOpt, table *stirling.Table, pot *[]PotentialJoin) bool {
	i1, i2 := infos[k1], infos[k2]

	if len(i1.Chains) < 2 || len(i1.Chains) > 3 || len(i2.Chains) < 2 || len(i2.Chains) > 3 {
		return false
	}
	if len(i1.Chains) != len(i2.Chains) {
		return false
	}
	for i := range i1.Chains {
		if len(i1.Chains[i].CDR3) != len(i2.Chains[i].CDR3) {
			return false
		}
	}

	diffs := 0
	for x := range i1.Chains {
		t1, t2 := i1.Chains[x].Tig, i2.Chains[x].Tig
		if i1.Chains[x].HasDel || i2.Chains[x].HasDel {
			n := min(len(t1), len(t2))
			for j := 0; j < n; j++ {
				if t1[j] != t2[j] {
					diffs++
				}
			}
			diffs += abs(len(t1) - len(t2))
		} else {
			diffs += hammingDiffs(t1, t2)
		}
	}
	if diffs > opt.MaxDiffs {
		return false
	}
	if !isBCR && diffs > 5 {
		return false
	}

	if !filt.Donor && len(i1.Donors) > 0 && len(i2.Donors) > 0 && !sameInts(i1.Donors, i2.Donors) {
		return false
	}
	err := !sameInts(i1.Donors, i2.Donors) || len(i1.Donors) != 1 || len(i2.Donors) != 1

	nrefs := 1
	for m := 0; m < 2 && m < len(i1.Chains); m++ {
		if i1.Chains[m].VRefID != i2.Chains[m].VRefID || i1.Chains[m].JRefID != i2.Chains[m].JRefID {
			nrefs = 2
		}
	}

	shares := make([]int, nrefs)
	indeps := make([]int, nrefs)
	total := make([][2]int, nrefs)

	for u := 0; u < nrefs; u++ {
		info := i1
		if u == 1 {
			info = i2
		}
		for m := range i1.Chains {
			t1, t2 := i1.Chains[m].Tig, i2.Chains[m].Tig
			vSeg := ref.Segment(info.Chains[m].VRefID)
			jSeg := ref.Segment(info.Chains[m].JRefID)
			if vSeg == nil || jSeg == nil {
				return false
			}

			for si := 0; si < 2; si++ {
				var seg string
				trim := opt.RefVTrim
				if si == 1 {
					trim = opt.RefJTrim
					seg = jSeg.Bases
				} else {
					seg = vSeg.Bases
				}
				limit := len(seg) - trim
				for p := 0; p < limit; p++ {
					var t1b, t2b, r byte
					if si == 0 {
						if p >= len(t1) || p >= len(t2) {
							return false
						}
						t1b, t2b = t1[p], t2[p]
						r = seg[p]
					} else {
						if p >= len(t1) || p >= len(t2) {
							return false
						}
						t1b, t2b = t1[len(t1)-p-1], t2[len(t2)-p-1]
						r = seg[len(seg)-p-1]
					}
					switch {
					case t1b == t2b && t1b != r:
						shares[u]++
					case (t1b == r && t2b != r) || (t2b == r && t1b != r):
						indeps[u]++
					case t1b != r && t2b != r:
						indeps[u] += 2
					}
					if t1b != r {
						total[u][0]++
					}
					if t2b != r {
						total[u][1]++
					}
				}
			}
		}
	}

	if nrefs == 2 {
		for m := 0; m < 2; m++ {
			if abs(total[0][m]-total[1][m]) > opt.MaxDegradation {
				return false
			}
		}
	}

	cd := 0
	for l := range i1.Chains {
		n := min(len(i1.Chains[l].CDR3), len(i2.Chains[l].CDR3))
		for m := 0; m < n; m++ {
			if i1.Chains[l].CDR3[m] != i2.Chains[l].CDR3[m] {
				cd++
			}
		}
	}
	if cd > opt.MaxCDR3Diffs || (!isBCR && cd > 0) {
		return false
	}

	minShares, minIndeps := minInt(shares), minInt(indeps)

	if hasOverlap(i1.BCs, i2.BCs) {
		return false
	}

	n := 3 * (len(i1.Chains[0].Tig) + len(i1.Chains[1].Tig))
	k := minIndeps + 2*minShares
	d := minShares
	if n == 0 || k == 0 {
		return false
	}
	p1 := table.PAtMostMDistinctInSampleOfXFromN(k-d, k, n)

	var mult float64
	if opt.OldMult {
		cn := 0
		for _, ch := range i1.Chains {
			cn += len(ch.CDR3)
		}
		mult = stirling.PartialBernoulliSum(3*cn, cd)
	} else {
		mult = pow(opt.MultPow, cd)
	}

	score := p1 * mult

	if float64(cd) >= opt.CDR3Mult*float64(max(1, minIndeps)) {
		score = opt.MaxScore + 1.0
	}

	if !opt.OldLight {
		for i := range i1.Chains {
			if i1.Chains[i].Left {
				continue
			}
			c1, c2 := i1.Chains[i].CRefID, i2.Chains[i].CRefID
			if c1 != nil && c2 != nil && *c1 != *c2 {
				score = opt.MaxScore + 1.0
			}
		}
	}

	if score > opt.MaxScore {
		return false
	}

	bcs1, bcs2 := i1.BCs, i2.BCs
	if !printOpt.ShowBC {
		bcs1, bcs2 = nil, nil
	}

	*pot = append(*pot, PotentialJoin{
		K1: k1, K2: k2,
		NRefs: nrefs, CD: cd, Diffs: diffs,
		BCs1: bcs1, BCs2: bcs2,
		Shares: shares, Indeps: indeps,
		Score: score, Err: err, P1: p1, Mult: mult,
	})
	return true
}

func hammingDiffs(a, b string) int {
	n := min(len(a), len(b))
	d := len(a) - n + len(b) - n
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func minInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func pow(base float64, exp int) float64 {
	r := 1.0
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasOverlap(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, x := range b {
		if set[x] {
			return true
		}
	}
	return false
}

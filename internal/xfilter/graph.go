// Package xfilter is the Cross-Filter Bank (component G): a sequence
// of passes over exact subclonotypes that remove cells whose chain
// pairing looks like cross-contamination or index hopping rather than
// a genuine paired receptor, before the Join Engine ever sees them.
package xfilter

import (
	"sort"

	"github.com/clonoweave/clonoweave/internal/exact"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// minRatioKill, maxKill, and maxKillCells are the single constant set
// spec's graph filter applies symmetrically to both the light->heavy
// and heavy->light weak-branch passes; maxPartners is the promiscuous-
// partner cutoff checked only on the light side, where onesies (a
// light chain with no heavy partner at all) are possible.
const (
	minRatioKill = 8
	maxKill      = 5
	maxKillCells = 2
	maxPartners  = 50
)

type seqKey struct {
	seq    string
	left   bool
	cdr3aa string
	vRefID int
}

// GraphFilter builds a bipartite light/heavy co-occurrence graph across
// every cell in subs (the original source's graph_filter), weighted by
// (sum over subclonotypes of the smaller of the two chains' UMI totals,
// number of supporting cells), then
// removes cells whose light-heavy pairing is a weak outlier next to a
// dominant partner, in both directions. It returns the surviving
// subclonotypes; subs is not mutated.
func GraphFilter(subs []*exact.Subclonotype) []*exact.Subclonotype {
	seqsSet := make(map[seqKey]int)
	var seqs []seqKey
	keyOf := func(ch *exact.Chain, left bool) seqKey {
		return seqKey{ch.Seq, left, ch.CDR3AA, ch.VRefID}
	}
	internSeq := func(k seqKey) int {
		if id, ok := seqsSet[k]; ok {
			return id
		}
		id := len(seqs)
		seqsSet[k] = id
		seqs = append(seqs, k)
		return id
	}

	type edgeKey struct{ light, heavy int }
	edgeUMI := make(map[edgeKey]int)
	edgeCells := make(map[edgeKey]int)

	for _, sc := range subs {
		var heavies, lights []int
		for i := range sc.Chains {
			left := isLeft(&sc.Chains[i])
			id := internSeq(keyOf(&sc.Chains[i], left))
			if left {
				heavies = append(heavies, i)
			} else {
				lights = append(lights, i)
			}
			_ = id
		}
		for _, hi := range heavies {
			h := internSeq(keyOf(&sc.Chains[hi], true))
			for _, li := range lights {
				l := internSeq(keyOf(&sc.Chains[li], false))
				k := edgeKey{l, h}
				edgeUMI[k] += minInt(sc.Chains[hi].UMICount, sc.Chains[li].UMICount)
				edgeCells[k] += sc.NumCells()
			}
		}
	}

	lightToHeavy := make(map[int][]edgeKey)
	heavyToLight := make(map[int][]edgeKey)
	for e := range edgeUMI {
		lightToHeavy[e.light] = append(lightToHeavy[e.light], e)
		heavyToLight[e.heavy] = append(heavyToLight[e.heavy], e)
	}

	kills := make(map[edgeKey]bool)
	badLight := make(map[int]bool)

	for v, edges := range lightToHeavy {
		if len(edges) > maxPartners {
			badLight[v] = true
		}
		if len(edges) <= 1 {
			continue
		}
		sort.Slice(edges, func(i, j int) bool {
			if edgeUMI[edges[i]] != edgeUMI[edges[j]] {
				return edgeUMI[edges[i]] > edgeUMI[edges[j]]
			}
			return edgeCells[edges[i]] > edgeCells[edges[j]]
		})
		best := edges[0]
		for _, e := range edges[1:] {
			if seqs[e.heavy].vRefID == seqs[best.heavy].vRefID {
				continue
			}
			numi, ncells := edgeUMI[e], edgeCells[e]
			numiBest, ncellsBest := edgeUMI[best], edgeCells[best]
			switch {
			case numiBest >= minRatioKill*max(1, numi) && numi <= maxKill:
				kills[e] = true
			case numiBest >= numi && ncellsBest >= minRatioKill*max(1, ncells):
				if ncells <= maxKillCells {
					kills[e] = true
				} else {
					for _, e2 := range heavyToLight[e.heavy] {
						if e2.light != v && edgeCells[e2] >= minRatioKill*ncells && edgeUMI[e2] >= minRatioKill*numi {
							kills[e] = true
						}
					}
				}
			}
		}
	}

	out := filterCells(subs, internSeqLookup(seqsSet), kills, badLight, true)

	// Second pass: heavy -> light branching.
	kills2 := make(map[edgeKey]bool)
	for v, edges := range heavyToLight {
		if len(edges) <= 1 {
			continue
		}
		sort.Slice(edges, func(i, j int) bool {
			if edgeUMI[edges[i]] != edgeUMI[edges[j]] {
				return edgeUMI[edges[i]] > edgeUMI[edges[j]]
			}
			return edgeCells[edges[i]] > edgeCells[edges[j]]
		})
		best := edges[0]
		for _, e := range edges[1:] {
			if edgeUMI[best] >= minRatioKill*max(1, edgeUMI[e]) && edgeUMI[e] <= maxKill && edgeCells[e] <= maxKillCells {
				kills2[e] = true
			}
		}
		_ = v
	}

	return filterCells(out, internSeqLookup(seqsSet), kills2, nil, false)
}

func internSeqLookup(m map[seqKey]int) func(seqKey) (int, bool) {
	return func(k seqKey) (int, bool) { id, ok := m[k]; return id, ok }
}

// filterCells removes cells where any (light,heavy) chain pairing
// belongs to kills, or (when checkOnesies is true) whose sole chain is
// a light chain flagged in badLight for having too many heavy partners.
func filterCells(subs []*exact.Subclonotype, lookup func(seqKey) (int, bool), kills map[edgeKey]bool, badLight map[int]bool, checkOnesies bool) []*exact.Subclonotype {
	var out []*exact.Subclonotype
	for _, sc := range subs {
		drop := false
		var heavies, lights []int
		for i := range sc.Chains {
			if isLeft(&sc.Chains[i]) {
				heavies = append(heavies, i)
			} else {
				lights = append(lights, i)
			}
		}
		for _, hi := range heavies {
			h, _ := lookup(seqKey{sc.Chains[hi].Seq, true, sc.Chains[hi].CDR3AA, sc.Chains[hi].VRefID})
			for _, li := range lights {
				l, _ := lookup(seqKey{sc.Chains[li].Seq, false, sc.Chains[li].CDR3AA, sc.Chains[li].VRefID})
				if kills[edgeKey{l, h}] {
					drop = true
				}
			}
		}
		if checkOnesies && len(sc.Chains) == 1 && !isLeft(&sc.Chains[0]) {
			l, _ := lookup(seqKey{sc.Chains[0].Seq, false, sc.Chains[0].CDR3AA, sc.Chains[0].VRefID})
			if badLight[l] {
				drop = true
			}
		}
		if !drop {
			out = append(out, sc)
		}
	}
	return out
}

func isLeft(ch *exact.Chain) bool {
	return refdata.ChainType(ch.ChainType).IsHeavy()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

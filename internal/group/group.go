// Package group implements the Grouper (component H): it takes the
// clonotypes produced by the Join Engine's Equivalence Relation and
// arranges them into display groups, either one group per clonotype
// (no grouping), a symmetric partition refined by shared V/J/CDR3
// properties and then merged by sequence similarity, or an asymmetric
// "distance to group centre" mode bounded by top/max, grounded on the
// original source's grouper.rs.
package group

import (
	"sort"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/join"
	"github.com/clonoweave/clonoweave/internal/refdata"
	"github.com/clonoweave/clonoweave/internal/unionfind"
)

// Clonotype is one post-join equivalence class: every CloneInfo index
// that union-find placed together, plus the cell count used to order
// groups by size (largest first), matching the original source's
// convention.
type Clonotype struct {
	Infos []int
	Cells int
}

// Group is one output group: clonotype indices (into the Clonotype
// slice passed to Symmetric/Asymmetric/None) with an optional message
// attached to each, mirroring the original source's Vec<(i32, String)>
// per-group member list.
type Group struct {
	Members []Member
}

// Member is one clonotype within a group.
type Member struct {
	ClonotypeIdx int
	Msg          string
}

// BuildClonotypes collapses a join.Result's union-find over CloneInfo
// indices into the list of Clonotypes, with per-clonotype cell counts
// derived from how many barcodes each member CloneInfo carries.
func BuildClonotypes(infos []join.CloneInfo, uf *unionfind.UnionFind) []Clonotype {
	byRep := make(map[int][]int)
	for i := range infos {
		rep := uf.ClassID(i)
		byRep[rep] = append(byRep[rep], i)
	}

	clonos := make([]Clonotype, 0, len(byRep))
	for _, members := range byRep {
		cells := 0
		for _, m := range members {
			cells += len(infos[m].BCs)
		}
		clonos = append(clonos, Clonotype{Infos: members, Cells: cells})
	}
	return clonos
}

// None is Case 0 from the original source: one group per clonotype,
// ordered by descending cell count.
func None(clonos []Clonotype) []Group {
	order := make([]int, len(clonos))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return clonos[order[i]].Cells > clonos[order[j]].Cells })

	groups := make([]Group, len(order))
	for i, idx := range order {
		groups[i] = Group{Members: []Member{{ClonotypeIdx: idx}}}
	}
	return groups
}

// signature is a clonotype's refinement key under a given predicate
// set, used to partition clonotypes before the similarity merge.
type signature struct {
	vjNames, vdjNames, vHeavyName string
	vjLen, cdr3Len                int
	cdr3HeavyLen, cdr3LightLen    int
}

func computeSignature(infos []join.CloneInfo, c Clonotype, ref *refdata.Index, opt cloneconfig.ClonoGroupOpt) signature {
	rep := infos[c.Infos[0]]
	var sig signature

	if opt.VJRefname || opt.VDJRefname || opt.VHeavyRefname || opt.VJHeavyRefname || opt.VDJHeavyRefname {
		for _, ch := range rep.Chains {
			vName, jName := ref.Name(ch.VRefID), ref.Name(ch.JRefID)
			sig.vjNames += vName + "," + jName + ";"
			if ch.Left {
				sig.vHeavyName = vName
			}
		}
		sig.vdjNames = sig.vjNames
	}
	if opt.VJLen {
		for _, ch := range rep.Chains {
			sig.vjLen += len(ch.Tig)
		}
	}
	if opt.CDR3Len {
		for _, ch := range rep.Chains {
			sig.cdr3Len += len(ch.CDR3)
		}
	}
	for _, ch := range rep.Chains {
		if ch.Left && opt.CDR3HeavyLen {
			sig.cdr3HeavyLen += len(ch.CDR3)
		} else if !ch.Left && opt.CDR3LightLen {
			sig.cdr3LightLen += len(ch.CDR3)
		}
	}
	return sig
}

// Symmetric is Case 1 from the original source: partition clonotypes
// by the configured predicate set, then within each partition merge
// clonotypes, via union-find, when chain by chain the CDR3 DNA percent
// identity clears HeavyPC (heavy chains) or LightPC (light chains); a
// zero threshold always passes. Any of the refname predicates keys the
// partition on the V and J names of every chain (D calls are not
// consulted). No whole V..J comparison is made, and the AAHeavyPC,
// CDR3HeavyPC and CDR3AAHeavyPC thresholds (and their light
// counterparts) are not consulted.
func Symmetric(infos []join.CloneInfo, clonos []Clonotype, ref *refdata.Index, opt cloneconfig.ClonoGroupOpt) []Group {
	partitions := make(map[signature][]int)
	var order []signature
	for i, c := range clonos {
		sig := computeSignature(infos, c, ref, opt)
		if _, ok := partitions[sig]; !ok {
			order = append(order, sig)
		}
		partitions[sig] = append(partitions[sig], i)
	}

	var groups []Group
	for _, sig := range order {
		members := partitions[sig]
		uf := unionfind.New(len(members))
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				if similar(infos, clonos[members[a]], clonos[members[b]], opt) {
					uf.Join(a, b)
				}
			}
		}
		for _, rep := range uf.OrbitReps() {
			orbit := uf.Orbit(rep)
			g := Group{}
			cells := 0
			for _, o := range orbit {
				g.Members = append(g.Members, Member{ClonotypeIdx: members[o]})
				cells += clonos[members[o]].Cells
			}
			groups = append(groups, g)
			_ = cells
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groupCells(clonos, groups[i]) > groupCells(clonos, groups[j])
	})
	return filterByMinGroup(groups, clonos, opt)
}

func groupCells(clonos []Clonotype, g Group) int {
	total := 0
	for _, m := range g.Members {
		total += clonos[m.ClonotypeIdx].Cells
	}
	return total
}

func filterByMinGroup(groups []Group, clonos []Clonotype, opt cloneconfig.ClonoGroupOpt) []Group {
	if opt.MinGroup <= 1 {
		return groups
	}
	var out []Group
	for _, g := range groups {
		if len(g.Members) >= opt.MinGroup {
			out = append(out, g)
		}
	}
	return out
}

func similar(infos []join.CloneInfo, a, b Clonotype, opt cloneconfig.ClonoGroupOpt) bool {
	ra, rb := infos[a.Infos[0]], infos[b.Infos[0]]
	if len(ra.Chains) != len(rb.Chains) {
		return false
	}
	for i := range ra.Chains {
		pc := PercentIdentity(ra.Chains[i].CDR3, rb.Chains[i].CDR3)
		threshold := opt.LightPC
		if ra.Chains[i].Left {
			threshold = opt.HeavyPC
		}
		if threshold > 0 && pc < threshold {
			return false
		}
	}
	return true
}

// Asymmetric is Case 2 from the original source: one group per centre,
// holding the centre and the non-centre clonotypes attached to it.
// Every non-centre clonotype is attached to up to `top` of its nearest
// centres (by CDR3 edit distance, summed over the chain positions both
// clonotypes have) whose distance is at most `max`, so it may appear in
// several groups. `top` bounds the centres per non-centre, not the
// number of members in a group.
func Asymmetric(infos []join.CloneInfo, clonos []Clonotype, centres []int, top, max int) []Group {
	isCentre := make(map[int]bool, len(centres))
	for _, c := range centres {
		isCentre[c] = true
	}

	groups := make([]Group, len(centres))
	for i, c := range centres {
		groups[i] = Group{Members: []Member{{ClonotypeIdx: c}}}
	}

	for i, c := range clonos {
		if isCentre[i] {
			continue
		}
		type cand struct {
			centre int
			dist   int
		}
		var cands []cand
		for gi, centreIdx := range centres {
			d := clonotypeDistance(infos, clonos[centreIdx], c)
			if d <= max {
				cands = append(cands, cand{gi, d})
			}
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
		if len(cands) > top {
			cands = cands[:top]
		}
		for _, cd := range cands {
			groups[cd.centre].Members = append(groups[cd.centre].Members, Member{ClonotypeIdx: i})
		}
	}

	return groups
}

func clonotypeDistance(infos []join.CloneInfo, a, b Clonotype) int {
	ra, rb := infos[a.Infos[0]], infos[b.Infos[0]]
	n := len(ra.Chains)
	if len(rb.Chains) < n {
		n = len(rb.Chains)
	}
	total := 0
	for i := 0; i < n; i++ {
		total += Levenshtein(ra.Chains[i].CDR3, rb.Chains[i].CDR3)
	}
	return total
}

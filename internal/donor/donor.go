// Package donor infers donor-specific V-segment alleles from recurring
// substitution patterns across a donor's exact subclonotypes
// (component E), grounded on the original source's enclone_denovo
// binary: a donor allele is called when the same set of base
// substitutions relative to the universal V reference recurs in at
// least MinAlt independent subclonotypes, which rules out a call
// driven by SHM in a single expanded clone.
package donor

import (
	"strconv"
	"strings"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/exact"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// Call is one inferred donor allele: a set of substitutions against
// universalVRefID, observed across Support independent subclonotypes
// for a single donor.
type Call struct {
	DonorIndex     int
	UniversalVRefID int
	Pattern        string // "pos:base,pos:base,..." sorted by position
	Support        int
}

// Infer scans subs (from every donor) and registers a new allele
// segment in ref for every substitution pattern that recurs at least
// opt.MinAlt times within a single donor's subclonotypes. It returns
// the Calls made, in the order alleles were registered, and mutates
// ref in place via refdata.Index.AddAllele.
func Infer(subs []*exact.Subclonotype, ref *refdata.Index, opt cloneconfig.AlleleAlgOpt) []Call {
	type bucketKey struct {
		donor   int
		vRefID  int
		pattern string
	}
	buckets := make(map[bucketKey][]*exact.Subclonotype)
	var order []bucketKey

	for _, sc := range subs {
		donorIdx := sc.DonorIndex()
		if donorIdx == nil {
			continue
		}
		for ci := range sc.Chains {
			ch := &sc.Chains[ci]
			pattern := substitutionPattern(sc, ch, ref)
			if pattern == "" {
				continue
			}
			k := bucketKey{*donorIdx, ch.VRefID, pattern}
			if _, ok := buckets[k]; !ok {
				order = append(order, k)
			}
			buckets[k] = append(buckets[k], sc)
		}
	}

	var calls []Call
	for _, k := range order {
		support := len(buckets[k])
		if support < opt.MinAlt {
			continue
		}

		universal := ref.Segment(k.vRefID)
		if universal == nil || universal.IsAllele {
			continue
		}

		altBases := applyPattern(universal.Bases, k.pattern)
		existing := ref.AllelesOf(k.vRefID)
		altID := len(existing)

		ref.AddAllele(&refdata.Segment{
			Name:           universal.Name + "*" + strconv.Itoa(altID+1),
			Region:         refdata.RegionV,
			Chain:          universal.Chain,
			Bases:          altBases,
			IsAllele:       true,
			OriginalVRefID: k.vRefID,
			DonorIndex:     k.donor,
			AltID:          altID,
		})

		calls = append(calls, Call{
			DonorIndex:      k.donor,
			UniversalVRefID: k.vRefID,
			Pattern:         k.pattern,
			Support:         support,
		})
	}

	return calls
}

// substitutionPattern computes the diff between the first contig
// supporting ch and the universal V reference over the aligned V
// window, as a "pos:base" list in ascending position order. Returns "" if the window is
// unavailable or no mismatches are found.
func substitutionPattern(sc *exact.Subclonotype, ch *exact.Chain, ref *refdata.Index) string {
	if len(ch.ContigIdx) == 0 || len(sc.Clones) == 0 {
		return ""
	}
	c := sc.Clones[0].Contigs[ch.ContigIdx[0]]
	seg := ref.Segment(ch.VRefID)
	if seg == nil {
		return ""
	}

	window := c.FullSeq[c.VStart:c.VStop]
	refBases := seg.Bases
	n := min(len(window), len(refBases))

	var diffs []string
	for i := 0; i < n; i++ {
		if window[i] != refBases[i] {
			diffs = append(diffs, strconv.Itoa(i)+":"+string(window[i]))
		}
	}
	if len(diffs) == 0 {
		return ""
	}
	return strings.Join(diffs, ",")
}

// applyPattern rewrites base at positions encoded in pattern
// ("pos:base,pos:base,...").
func applyPattern(bases, pattern string) string {
	out := []byte(bases)
	for _, tok := range strings.Split(pattern, ",") {
		parts := strings.SplitN(tok, ":", 2)
		if len(parts) != 2 {
			continue
		}
		pos, err := strconv.Atoi(parts[0])
		if err != nil || pos < 0 || pos >= len(out) || len(parts[1]) != 1 {
			continue
		}
		out[pos] = parts[1][0]
	}
	return string(out)
}

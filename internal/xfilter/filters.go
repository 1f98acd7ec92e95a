package xfilter

import (
	"fmt"
	"math"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/cloneerr"
	"github.com/clonoweave/clonoweave/internal/exact"
)

// crossSeqKey identifies one distinct V..J sequence for the purposes of
// G.2/G.5: heavy and light chains never compare against each other, and
// two chains of the same side with byte-identical Seq are the same
// observation.
type crossSeqKey struct {
	left bool
	seq  string
}

// CrossFilter (G.2) removes low-support occurrences of a V..J sequence
// that appears in exactly one dataset among the datasets sharing its
// donor/origin: if p = (dataset_cell_count / origin_cell_count)^n is at
// most 1e-6 (n being how many cells in that one dataset carry the
// sequence), seeing it confined to a single dataset that often is
// itself vanishingly unlikely under honest clonal sharing, so every
// occurrence with fewer than 100 supporting UMIs is dropped as
// cross-library contamination.
func CrossFilter(subs []*exact.Subclonotype, opt cloneconfig.ClonoFiltOpt) []*exact.Subclonotype {
	if opt.NCross <= 0 {
		return subs
	}

	datasetCells := make(map[int]int)
	originCells := make(map[int]int)
	datasetOrigin := make(map[int]int)
	for _, sc := range subs {
		for _, cl := range sc.Clones {
			datasetCells[cl.DatasetIndex]++
			if cl.OriginIndex != nil {
				originCells[*cl.OriginIndex]++
				datasetOrigin[cl.DatasetIndex] = *cl.OriginIndex
			}
		}
	}

	perSeqDataset := make(map[crossSeqKey]map[int]int)
	for _, sc := range subs {
		for i := range sc.Chains {
			k := crossSeqKey{isLeft(&sc.Chains[i]), sc.Chains[i].Seq}
			if perSeqDataset[k] == nil {
				perSeqDataset[k] = make(map[int]int)
			}
			for _, cl := range sc.Clones {
				perSeqDataset[k][cl.DatasetIndex]++
			}
		}
	}

	drop := make(map[crossSeqKey]int) // seq -> the sole dataset its occurrences should be dropped from
	for k, byDataset := range perSeqDataset {
		if len(byDataset) != 1 {
			continue // shared by more than one dataset: not confined, not suspect
		}
		var ds, n int
		for d, c := range byDataset {
			ds, n = d, c
		}
		origin, ok := datasetOrigin[ds]
		if !ok {
			continue
		}
		oc, dc := originCells[origin], datasetCells[ds]
		if oc == 0 || dc == 0 {
			continue
		}
		p := math.Pow(float64(dc)/float64(oc), float64(n))
		if p <= 1e-6 {
			drop[k] = ds
		}
	}

	var out []*exact.Subclonotype
	for _, sc := range subs {
		var kept []exact.Clone
		for _, cl := range sc.Clones {
			dropCell := false
			for i := range sc.Chains {
				k := crossSeqKey{isLeft(&sc.Chains[i]), sc.Chains[i].Seq}
				if ds, ok := drop[k]; ok && ds == cl.DatasetIndex && sc.Chains[i].UMICount < 100 {
					dropCell = true
				}
			}
			if !dropCell {
				kept = append(kept, cl)
			}
		}
		if len(kept) == 0 {
			continue
		}
		clone := *sc
		clone.Clones = kept
		out = append(out, &clone)
	}
	return out
}

// BarcodeReuseFilter (G.3) looks for a barcode appearing in more than
// one dataset. A "true" reuse is one where some chain's CDR3 amino
// acid is shared across the two occurrences: an honest barcode
// collision across independently-run GEM wells almost never lands on
// the same receptor, so a shared CDR3 there signals a doublet or index
// hop rather than two unrelated cells. If the true-reuse count exceeds
// 10% of the smallest dataset's barcode count, the run aborts: that
// high a rate means the input itself is compromised, not just a few
// stray cells worth silently dropping.
func BarcodeReuseFilter(subs []*exact.Subclonotype) error {
	type occurrence struct {
		dataset int
		cdr3aa  map[string]bool
	}
	byBarcode := make(map[string][]occurrence)
	datasetBarcodes := make(map[int]map[string]bool)

	for _, sc := range subs {
		cdr3s := make(map[string]bool, len(sc.Chains))
		for _, ch := range sc.Chains {
			cdr3s[ch.CDR3AA] = true
		}
		for _, cl := range sc.Clones {
			byBarcode[cl.Barcode] = append(byBarcode[cl.Barcode], occurrence{dataset: cl.DatasetIndex, cdr3aa: cdr3s})
			if datasetBarcodes[cl.DatasetIndex] == nil {
				datasetBarcodes[cl.DatasetIndex] = make(map[string]bool)
			}
			datasetBarcodes[cl.DatasetIndex][cl.Barcode] = true
		}
	}

	trueReuse := 0
	for _, occs := range byBarcode {
		for i := 0; i < len(occs); i++ {
			for j := i + 1; j < len(occs); j++ {
				if occs[i].dataset == occs[j].dataset {
					continue
				}
				if sharesCDR3(occs[i].cdr3aa, occs[j].cdr3aa) {
					trueReuse++
				}
			}
		}
	}
	if trueReuse == 0 {
		return nil
	}

	smallest := -1
	for _, bcs := range datasetBarcodes {
		if smallest == -1 || len(bcs) < smallest {
			smallest = len(bcs)
		}
	}
	if smallest <= 0 {
		return nil
	}

	if float64(trueReuse) > 0.1*float64(smallest) {
		return cloneerr.BarcodeReuse(fmt.Sprintf(
			"%d barcode pair(s) reused across datasets sharing a cdr3_aa, exceeding 10%% of the smallest dataset (%d barcodes)",
			trueReuse, smallest))
	}
	return nil
}

func sharesCDR3(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

const (
	gelBeadBinLen         = 8
	gelBeadMinRatio       = 10
	gelBeadMinPairFraction = 0.2
)

// GelBeadFilter (G.4) bins the cells (clones) of one exact subclonotype
// by the first and last 8 bases of their barcode separately, then, for
// any bin where at least 20% of its cell pairs show a >=10x UMI
// disparity, drops the low-UMI member of every such pair: that pattern
// is the signature of gel-bead doublets, where one cell's contigs leak
// trace reads into a barcode sharing a bead with it.
func GelBeadFilter(subs []*exact.Subclonotype) []*exact.Subclonotype {
	out := make([]*exact.Subclonotype, 0, len(subs))
	for _, sc := range subs {
		if len(sc.Clones) < 2 {
			out = append(out, sc)
			continue
		}

		umi := make([]int, len(sc.Clones))
		for i, cl := range sc.Clones {
			for _, c := range cl.Contigs {
				umi[i] += c.UMICount
			}
		}

		drop := make([]bool, len(sc.Clones))
		for _, keyFn := range []func(string) string{barcodePrefix, barcodeSuffix} {
			bins := make(map[string][]int)
			for i, cl := range sc.Clones {
				k := keyFn(cl.Barcode)
				bins[k] = append(bins[k], i)
			}
			for _, idxs := range bins {
				if len(idxs) < 2 {
					continue
				}
				total, disparate := 0, 0
				var pairs [][2]int
				for a := 0; a < len(idxs); a++ {
					for b := a + 1; b < len(idxs); b++ {
						total++
						i, j := idxs[a], idxs[b]
						hi, lo := i, j
						if umi[lo] > umi[hi] {
							hi, lo = lo, hi
						}
						if umi[hi] >= gelBeadMinRatio*max(1, umi[lo]) {
							disparate++
							pairs = append(pairs, [2]int{hi, lo})
						}
					}
				}
				if total > 0 && float64(disparate)/float64(total) >= gelBeadMinPairFraction {
					for _, pr := range pairs {
						drop[pr[1]] = true
					}
				}
			}
		}

		var kept []exact.Clone
		for i, cl := range sc.Clones {
			if !drop[i] {
				kept = append(kept, cl)
			}
		}
		if len(kept) == 0 {
			continue
		}
		clone := *sc
		clone.Clones = kept
		out = append(out, &clone)
	}
	return out
}

func barcodePrefix(bc string) string {
	if len(bc) < gelBeadBinLen {
		return bc
	}
	return bc[:gelBeadBinLen]
}

func barcodeSuffix(bc string) string {
	if len(bc) < gelBeadBinLen {
		return bc
	}
	return bc[len(bc)-gelBeadBinLen:]
}

// minIndependentRecurCells is the cell-count floor a 2-chain
// subclonotype must clear to count as the "independent high-cell-count"
// recurrence FoursieFilter checks for.
const minIndependentRecurCells = 1

// FoursieFilter (G.5) drops a 4-or-more-chain subclonotype only if one
// of its (heavy, light) chain-sequence pairs also recurs, independently
// and with real cell support, as its own 2-chain exact subclonotype:
// that is the signature of two real cells' contigs merging into one
// apparent 4-chain doublet, as opposed to a genuine (rare) cell
// expressing four distinct receptor chains.
func FoursieFilter(subs []*exact.Subclonotype) []*exact.Subclonotype {
	twoChainCells := make(map[[2]string]int)
	for _, sc := range subs {
		if len(sc.Chains) != 2 {
			continue
		}
		h, l, ok := heavyLightSeqs(sc.Chains)
		if !ok {
			continue
		}
		twoChainCells[[2]string{h, l}] += sc.NumCells()
	}

	out := make([]*exact.Subclonotype, 0, len(subs))
	for _, sc := range subs {
		if len(sc.Chains) < 4 {
			out = append(out, sc)
			continue
		}
		drop := false
		for i := range sc.Chains {
			if !isLeft(&sc.Chains[i]) {
				continue
			}
			for j := range sc.Chains {
				if isLeft(&sc.Chains[j]) {
					continue
				}
				if twoChainCells[[2]string{sc.Chains[i].Seq, sc.Chains[j].Seq}] >= minIndependentRecurCells {
					drop = true
				}
			}
		}
		if !drop {
			out = append(out, sc)
		}
	}
	return out
}

func heavyLightSeqs(chains []exact.Chain) (heavy, light string, ok bool) {
	for i := range chains {
		if isLeft(&chains[i]) {
			heavy = chains[i].Seq
		} else {
			light = chains[i].Seq
		}
	}
	return heavy, light, heavy != "" && light != ""
}

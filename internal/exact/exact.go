// Package exact builds exact subclonotypes: per-(barcode,dataset)
// candidate cell records sharing identical V..J sequence per chain,
// merged across cells into one consensus record per distinct chain
// combination (component D). A Subclonotype is a "share" (the Chains
// consensus) plus "clones" (the cells that carry it) — the original
// source's ExactClonotype.share/clone_info split. Subclonotypes are
// referred to by their arena index (Subclonotype.Index) rather than by
// back-pointers, per the "arena-style indices instead of cyclic
// references" design decision recorded for this module.
package exact

import (
	"sort"
	"strconv"
	"strings"

	"github.com/clonoweave/clonoweave/internal/annotate"
	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// Chain is one distinct chain within an exact subclonotype's share: the
// consensus sequence and reference calls common to every clone that
// carries it.
type Chain struct {
	VRefID, JRefID         int
	URefID, DRefID, CRefID *int

	Seq     string
	CDR3DNA string
	CDR3AA  string

	// SeqDel is Seq with any single in-frame indel relative to the
	// reference edited out: deletions are padded with '-' to the
	// reference's coordinate length (never insertions, which are
	// simply dropped), nudged so the hyphen run starts on a codon
	// boundary. SeqDelAmino is its translation, one amino acid or '-'
	// per codon. Used by the Join Engine for length-normalized
	// comparisons (component D, spec's indel/has_del handling).
	SeqDel      string
	SeqDelAmino string

	// UTR and CRegion are the consensus 5'UTR (leftward of v_start) and
	// constant-region (rightward of j_stop) sequences built by the
	// base-by-base quality vote across every supporting contig.
	// FullConsensus is UTR + Seq + CRegion, the full assembled record.
	UTR           string
	CRegion       string
	FullConsensus string

	ChainType int // refdata.ChainType, avoided importing to keep this package reference-free

	ContigIdx []int // indices into the first Clone's Contigs that established this chain's Seq/CDR3
	UMICount  int
	ReadCount int
}

// Clone is one cell (barcode, dataset_index) merged into a
// Subclonotype: its identity and the contigs it contributed.
type Clone struct {
	Barcode      string
	DatasetIndex int
	OriginIndex  *int
	DonorIndex   *int

	Contigs []*contigio.Contig
}

// Subclonotype is the share (Chains) plus clones (Clones) of one
// distinct chain combination: every cell in Clones carries the exact
// same chain count, CDR3, and V..J sequence per chain. Most
// subclonotypes have one clone; recurring clonal expansions and PCR
// duplicate cells produce many.
type Subclonotype struct {
	// Index is this subclonotype's position in the arena Builder.Build
	// returns — the single canonical way to refer to a Subclonotype,
	// replacing the cyclic Contig<->Subclonotype pointers the original
	// representation used.
	Index int

	Chains []Chain
	Clones []Clone
}

// Barcode returns a representative barcode (the first clone's), for
// callers that need "a" barcode rather than the full clone list.
func (s *Subclonotype) Barcode() string {
	if len(s.Clones) == 0 {
		return ""
	}
	return s.Clones[0].Barcode
}

// DonorIndex returns the first clone's donor, or nil if unset. Every
// clone in a subclonotype is assumed to share a donor; mixed-donor
// merges are a BarcodeReuse-class anomaly handled upstream.
func (s *Subclonotype) DonorIndex() *int {
	if len(s.Clones) == 0 {
		return nil
	}
	return s.Clones[0].DonorIndex
}

// NumCells reports how many clones (cells) this subclonotype merged.
func (s *Subclonotype) NumCells() int {
	return len(s.Clones)
}

// Builder accumulates contigs and produces the arena of Subclonotypes.
type Builder struct {
	groups map[groupKey][]*contigio.Contig
	order  []groupKey
}

type groupKey struct {
	barcode      string
	datasetIndex int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{groups: make(map[groupKey][]*contigio.Contig)}
}

// Add files a contig under its (barcode, dataset_index) group.
func (b *Builder) Add(c *contigio.Contig) {
	k := groupKey{c.Barcode, c.DatasetIndex}
	if _, ok := b.groups[k]; !ok {
		b.order = append(b.order, k)
	}
	b.groups[k] = append(b.groups[k], c)
}

// Candidate group sizes kept for exact-subclonotype construction: a
// cell with no chains has nothing to build, and one with more than
// four contigs is overwhelmingly a cell doublet, not a real cell with
// an unusually high chain count (component D's group-size filter).
const (
	minGroupSize = 1
	maxGroupSize = 4
)

type cellRecord struct {
	key     groupKey
	origin  *int
	donor   *int
	contigs []*contigio.Contig
	chains  []Chain // canonically ordered
}

// Build consumes every added contig and returns the arena of exact
// subclonotypes. Each (barcode, dataset_index) group first becomes a
// candidate cell (dropped if its contig count falls outside
// [minGroupSize, maxGroupSize]); candidate cells whose chain sets are
// equal under the component D equality law (same chain count; per
// chain, in canonical order, identical cdr3_dna, identical seq, and a
// compatible C-ref call) are then merged into one Subclonotype with
// many clones, in first-seen order (deterministic, since Add is called
// in input order by the pipeline driver).
func (b *Builder) Build() []*Subclonotype {
	cells := make([]cellRecord, 0, len(b.order))
	for _, k := range b.order {
		contigs := b.groups[k]
		if len(contigs) < minGroupSize || len(contigs) > maxGroupSize {
			continue
		}
		cells = append(cells, cellRecord{
			key:     k,
			origin:  contigs[0].OriginIndex,
			donor:   contigs[0].DonorIndex,
			contigs: contigs,
			chains:  canonicalOrder(buildCellChains(contigs)),
		})
	}

	type bucket struct {
		chains   []Chain
		cellIdxs []int
	}
	buckets := make(map[string]*bucket)
	var order []string
	for i, c := range cells {
		sig := chainSignature(c.chains)
		bk, ok := buckets[sig]
		if !ok {
			bk = &bucket{chains: c.chains}
			buckets[sig] = bk
			order = append(order, sig)
		}
		bk.cellIdxs = append(bk.cellIdxs, i)
	}

	out := make([]*Subclonotype, 0, len(order))
	for _, sig := range order {
		bk := buckets[sig]

		// Defensive barcode-reuse check: the same barcode merging into
		// one subclonotype via two different cell records signals a
		// contaminated or duplicate GEM well, not two legitimate
		// clones; drop every clone carrying that barcode.
		barcodeCount := make(map[string]int)
		for _, ci := range bk.cellIdxs {
			barcodeCount[cells[ci].key.barcode]++
		}

		var clones []Clone
		var supporting [][]*contigio.Contig
		for _, ci := range bk.cellIdxs {
			c := cells[ci]
			if barcodeCount[c.key.barcode] > 1 {
				continue
			}
			clones = append(clones, Clone{
				Barcode:      c.key.barcode,
				DatasetIndex: c.key.datasetIndex,
				OriginIndex:  c.origin,
				DonorIndex:   c.donor,
				Contigs:      c.contigs,
			})
			if supporting == nil {
				supporting = make([][]*contigio.Contig, len(bk.chains))
			}
			for i, ch := range c.chains {
				for _, ci2 := range ch.ContigIdx {
					supporting[i] = append(supporting[i], c.contigs[ci2])
				}
			}
		}
		if len(clones) == 0 {
			continue // every clone collided on barcode reuse; drop silently
		}

		out = append(out, &Subclonotype{
			Chains: consensusChains(bk.chains, clones, supporting),
			Clones: clones,
		})
	}

	for i, sc := range out {
		sc.Index = i
	}
	return out
}

// buildChains is an unexported alias of buildCellChains; nothing in
// this package calls it.
func buildChains(contigs []*contigio.Contig) []Chain {
	return buildCellChains(contigs)
}

// buildCellChains partitions one cell's contigs into distinct chains by
// identical (v_ref_id, j_ref_id, cdr3_dna) and produces one consensus
// Chain per partition, voting on the most frequent optional reference
// call (U/D/C) the way the original exact-subclonotype construction
// does (majority vote, ties broken by lowest ref id for determinism).
func buildCellChains(contigs []*contigio.Contig) []Chain {
	type key struct {
		v, j int
		cdr3 string
	}
	groups := make(map[key][]int)
	var order []key
	for i, c := range contigs {
		k := key{c.VRefID, c.JRefID, c.CDR3DNA}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	chains := make([]Chain, 0, len(order))
	for _, k := range order {
		idxs := groups[k]
		first := contigs[idxs[0]]

		seqDel, seqDelAmino := indelEdit(first)

		ch := Chain{
			VRefID:      k.v,
			JRefID:      k.j,
			CDR3DNA:     k.cdr3,
			CDR3AA:      first.CDR3AA,
			Seq:         first.Seq(),
			SeqDel:      seqDel,
			SeqDelAmino: seqDelAmino,
			ChainType:   int(first.ChainType),
			ContigIdx:   idxs,
		}

		ch.URefID = consensusOptionalInt(contigs, idxs, func(c *contigio.Contig) *int { return c.URefID })
		ch.DRefID = consensusOptionalInt(contigs, idxs, func(c *contigio.Contig) *int { return c.DRefID })
		ch.CRefID = consensusOptionalInt(contigs, idxs, func(c *contigio.Contig) *int { return c.CRefID })

		for _, i := range idxs {
			ch.UMICount += contigs[i].UMICount
			ch.ReadCount += contigs[i].ReadCount
		}

		chains = append(chains, ch)
	}
	return chains
}

// canonicalOrder sorts chains by (left desc, seq, cdr3_dna), the
// component D/section 8 canonical order used both to detect equality
// between cells and to lay out a merged subclonotype's chain list
// deterministically.
func canonicalOrder(chains []Chain) []Chain {
	out := make([]Chain, len(chains))
	copy(out, chains)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := refdata.ChainType(out[i].ChainType).IsHeavy(), refdata.ChainType(out[j].ChainType).IsHeavy()
		if li != lj {
			return li
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CDR3DNA < out[j].CDR3DNA
	})
	return out
}

// chainSignature builds the component D equality key: chain count,
// then per chain (in canonical order) identical cdr3_dna, identical
// seq, and a compatible C-ref call (both absent, or both present with
// the same ref id).
func chainSignature(ordered []Chain) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(ordered)))
	for _, ch := range ordered {
		b.WriteByte('|')
		b.WriteString(ch.CDR3DNA)
		b.WriteByte('~')
		b.WriteString(ch.Seq)
		b.WriteByte('~')
		if ch.CRefID != nil {
			b.WriteString(strconv.Itoa(*ch.CRefID))
		} else {
			b.WriteString("nil")
		}
	}
	return b.String()
}

// consensusChains recomputes UMI/read totals across every clone merged
// into the subclonotype and runs the 5'UTR/C-region consensus walk
// over every contig supporting each chain position, producing the
// share-level FullConsensus record.
func consensusChains(baseline []Chain, clones []Clone, supporting [][]*contigio.Contig) []Chain {
	out := make([]Chain, len(baseline))
	copy(out, baseline)

	for i := range out {
		out[i].UMICount = 0
		out[i].ReadCount = 0
	}
	for _, cl := range clones {
		cellChains := canonicalOrder(buildCellChains(cl.Contigs))
		for i := range out {
			if i >= len(cellChains) {
				continue
			}
			out[i].UMICount += cellChains[i].UMICount
			out[i].ReadCount += cellChains[i].ReadCount
		}
	}

	for i := range out {
		contigs := supporting[i]
		out[i].UTR = walkConsensus(contigs, true)
		out[i].CRegion = walkConsensus(contigs, false)
		out[i].FullConsensus = out[i].UTR + out[i].Seq + out[i].CRegion
	}
	return out
}

// walkConsensus builds the 5'UTR (leftward of v_start, leftward=true)
// or C-region (rightward of j_stop) consensus sequence across contigs:
// step outward one base at a time, tallying a quality-weighted vote
// per base at that offset, and stop once coverage (the count of
// contigs still reaching that offset) drops below 10% of the prior
// step's coverage or hits zero. Ties in the vote are broken by lowest
// base byte for determinism.
func walkConsensus(contigs []*contigio.Contig, leftward bool) string {
	if len(contigs) == 0 {
		return ""
	}

	var bases []byte
	prevCoverage := len(contigs)
	for step := 1; ; step++ {
		votes := make(map[byte]int)
		coverage := 0
		for _, c := range contigs {
			var pos int
			if leftward {
				pos = c.VStart - step
			} else {
				pos = c.JStop - 1 + step
			}
			if pos < 0 || pos >= len(c.FullSeq) || pos >= len(c.FullQuals) {
				continue
			}
			coverage++
			votes[c.FullSeq[pos]] += int(c.FullQuals[pos])
		}
		if coverage == 0 || float64(coverage) < 0.1*float64(prevCoverage) {
			break
		}
		prevCoverage = coverage

		var best byte
		bestQual := -1
		for base, q := range votes {
			if q > bestQual || (q == bestQual && base < best) {
				best, bestQual = base, q
			}
		}
		bases = append(bases, best)
	}

	if leftward {
		for i, j := 0, len(bases)-1; i < j; i, j = i+1, j-1 {
			bases[i], bases[j] = bases[j], bases[i]
		}
	}
	return string(bases)
}

// indelEdit produces seq_del and seq_del_amino for one contig: when
// AnnV holds exactly two tuples (a single in-frame indel), the gap
// between them is either a reference deletion (padded with '-', nudged
// to a codon boundary) or a contig insertion (dropped, never
// hyphenated, per the has_del convention that insertions never set
// has_del). With zero or one AnnV tuple, seq_del is Seq unchanged.
func indelEdit(c *contigio.Contig) (seqDel, seqDelAmino string) {
	seq := c.Seq()
	if len(c.AnnV) != 2 {
		return seq, translateWithGaps(seq)
	}

	a0, a1 := c.AnnV[0], c.AnnV[1]
	tigBreak := clampInt(a0.TigOffset+a0.Length-c.VStart, 0, len(seq))
	refGap := a1.RefOffset - (a0.RefOffset + a0.Length)
	tigGap := a1.TigOffset - (a0.TigOffset + a0.Length)

	var b strings.Builder
	b.WriteString(seq[:tigBreak])
	if refGap > 0 {
		b.WriteString(strings.Repeat("-", refGap))
	}
	rest := clampInt(tigBreak+tigGap, 0, len(seq))
	b.WriteString(seq[rest:])

	seqDel = nudgeToCodonBoundary(b.String())
	return seqDel, translateWithGaps(seqDel)
}

// nudgeToCodonBoundary shifts a hyphen run's start earlier by up to two
// bases so it begins on a codon boundary, matching seq_del_amino's
// requirement that the deletion site line up with translated codons.
func nudgeToCodonBoundary(seqDel string) string {
	idx := strings.IndexByte(seqDel, '-')
	if idx <= 0 {
		return seqDel
	}
	shift := idx % 3
	if shift == 0 {
		return seqDel
	}
	run := strings.TrimLeft(seqDel[idx:], "-")
	gapLen := len(seqDel[idx:]) - len(run)
	return seqDel[:idx-shift] + strings.Repeat("-", shift+gapLen) + seqDel[idx+gapLen:]
}

// translateWithGaps translates seq codon by codon, emitting '-' for any
// codon containing a deletion hyphen.
func translateWithGaps(seq string) string {
	var out strings.Builder
	for i := 0; i+3 <= len(seq); i += 3 {
		codon := seq[i : i+3]
		if strings.ContainsRune(codon, '-') {
			out.WriteByte('-')
			continue
		}
		out.WriteByte(annotate.TranslateCodon(codon))
	}
	return out.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// consensusOptionalInt returns the most frequent non-nil value of
// field across the given contig indices, or nil if none are set.
// Ties are broken by lowest value for determinism.
func consensusOptionalInt(contigs []*contigio.Contig, idxs []int, field func(*contigio.Contig) *int) *int {
	counts := make(map[int]int)
	for _, i := range idxs {
		if v := field(contigs[i]); v != nil {
			counts[*v]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	type pair struct {
		val, count int
	}
	var pairs []pair
	for v, c := range counts {
		pairs = append(pairs, pair{v, c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].val < pairs[j].val
	})
	best := pairs[0].val
	return &best
}

// Package annotate re-derives and confirms V/D/J/C boundaries and the
// CDR3 call on each contig against the reference (component C). It
// keeps the teacher's annotator shape (a single Annotator type with an
// Annotate method, driven by refdata instead of a transcript cache)
// but the consequence/HGVS machinery it used for variant effect
// prediction has no analogue here: V(D)J annotation confirms alignment
// boundaries, not protein consequences.
package annotate

import (
	"fmt"
	"strings"

	"github.com/clonoweave/clonoweave/internal/cloneerr"
	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// Annotator re-aligns a contig's V, J, and (for heavy/TRB chains) D
// segment against refdata.Index and confirms or corrects the boundary
// and CDR3 fields an inbound contig record arrived with. No sequence
// alignment library exists anywhere in the example pack (the original
// source's bio_edit/debruijn crates have no Go analogue available
// here), so the scoring windows below are a plain Hamming-distance
// scan over a small offset band — the one place in this module that
// falls back to the standard library rather than a third-party crate.
type Annotator struct {
	ref *refdata.Index

	// MaxShift bounds how far the re-alignment searches around the
	// inbound v_stop/j_start; when no shift lowers the mismatch count,
	// the inbound call is kept unmodified.
	MaxShift int
}

// New creates an Annotator bound to ref.
func New(ref *refdata.Index) *Annotator {
	return &Annotator{ref: ref, MaxShift: 8}
}

// Annotate re-aligns contig in place against the reference and returns
// it. It never changes VRefID/JRefID (those are trusted as given,
// matching the inbound contract in spec.md section 6), only the
// boundary coordinates, the V alignment tuples (AnnV, when absent), the
// D call, and the CDR3 fields.
func (a *Annotator) Annotate(c *contigio.Contig) (*contigio.Contig, error) {
	vSeg := a.ref.Segment(c.VRefID)
	if vSeg == nil {
		return nil, cloneerr.ReferenceMismatch(fmt.Sprintf("contig %s: v_ref_id %d not in reference", c.Name, c.VRefID), nil)
	}
	jSeg := a.ref.Segment(c.JRefID)
	if jSeg == nil {
		return nil, cloneerr.ReferenceMismatch(fmt.Sprintf("contig %s: j_ref_id %d not in reference", c.Name, c.JRefID), nil)
	}

	vStop, vStopRef := a.refineBoundary(c.FullSeq, vSeg.Bases, c.VStart, c.VStop, a.MaxShift, true)
	c.VStop = vStop
	c.VStopRef = vStopRef

	jStart, jStartRef := a.refineBoundary(c.FullSeq, jSeg.Bases, c.JStart, c.JStop, a.MaxShift, false)
	c.JStart = jStart
	c.JStartRef = jStartRef

	if len(c.AnnV) == 0 {
		c.AnnV = a.deriveAnnV(c, vSeg.Bases)
	}

	if c.ChainType.IsHeavy() {
		if d, ok := a.detectD(c.FullSeq, c.VStop, c.JStart); ok {
			c.DRefID = &d
		}
	}

	if c.CDR3DNA == "" {
		if !a.deriveCDR3(c) {
			return nil, cloneerr.MalformedInput(fmt.Sprintf("contig %s: cdr3 motif anchors not found", c.Name), nil)
		}
	}

	if err := a.confirmCDR3(c); err != nil {
		return nil, err
	}

	return c, nil
}

// deriveAnnV aligns contig against ref starting at c.VStart, tolerating
// at most one in-frame (length % 3 == 0) indel, per spec step 1 of
// component C. It returns one tuple when a clean ungapped alignment is
// found, or two when a single indel breakpoint clearly improves the
// suffix alignment. For a deletion the second tuple begins where the
// first ends in contig space and skips ahead in reference space; for an
// insertion (found by the negative-shift search below) it skips the
// inserted bases in contig space and resumes where the first ended in
// reference space.
func (a *Annotator) deriveAnnV(c *contigio.Contig, ref string) []contigio.VAnn {
	const maxDivergence = 0.15
	const maxBreakDivergence = 0.2

	contig := c.FullSeq
	start := c.VStart
	n := min(len(contig)-start, len(ref))
	if n <= 0 {
		return []contigio.VAnn{{TigOffset: start, Length: 0, VRefID: c.VRefID}}
	}

	mm := hamming(contig[start:start+n], ref[:n])
	if float64(mm) <= maxDivergence*float64(n) {
		return []contigio.VAnn{{TigOffset: start, Length: n, VRefID: c.VRefID, RefOffset: 0, Mismatches: mm}}
	}

	bestB, bestD, bestScore := -1, 0, -1
	for b := 3; b < n-3; b += 3 {
		prefixMM := hamming(contig[start:start+b], ref[:b])
		if float64(prefixMM) > maxBreakDivergence*float64(b) {
			continue
		}
		for _, d := range []int{-9, -6, -3, 3, 6, 9} {
			refPos := b + d
			if refPos < 0 || refPos >= len(ref) {
				continue
			}
			tail := min(len(contig)-start-b, len(ref)-refPos)
			if tail <= 0 {
				continue
			}
			suffixMM := hamming(contig[start+b:start+b+tail], ref[refPos:refPos+tail])
			if float64(suffixMM) > maxDivergence*float64(tail) {
				continue
			}
			score := tail - 2*suffixMM
			if score > bestScore {
				bestScore, bestB, bestD = score, b, d
			}
		}
	}
	if bestB < 0 {
		return []contigio.VAnn{{TigOffset: start, Length: n, VRefID: c.VRefID, RefOffset: 0, Mismatches: mm}}
	}

	tigSkip, refPos := 0, bestB+bestD
	if bestD < 0 {
		tigSkip, refPos = -bestD, bestB
	}
	tailStart := start + bestB + tigSkip
	tailLen := min(len(contig)-tailStart, len(ref)-refPos)
	if tailLen <= 0 {
		return []contigio.VAnn{{TigOffset: start, Length: n, VRefID: c.VRefID, RefOffset: 0, Mismatches: mm}}
	}
	return []contigio.VAnn{
		{TigOffset: start, Length: bestB, VRefID: c.VRefID, RefOffset: 0,
			Mismatches: hamming(contig[start:start+bestB], ref[:bestB])},
		{TigOffset: tailStart, Length: tailLen, VRefID: c.VRefID, RefOffset: refPos,
			Mismatches: hamming(contig[tailStart:tailStart+tailLen], ref[refPos:refPos+tailLen])},
	}
}

// deriveCDR3 locates the CDR3 from its canonical motif anchors: a
// conserved cysteine codon near the V segment's 3' end, and a
// conserved phenylalanine (or, for heavy chains, tryptophan) codon near
// the J segment's 5' end, per spec step 5 of component C. It returns
// false if either anchor can't be found, signalling the contig should
// be dropped.
func (a *Annotator) deriveCDR3(c *contigio.Contig) bool {
	seq := c.FullSeq

	searchStart := max(c.VStart, c.VStop-30)
	cysPos := -1
	for i := (c.VStop - 3) / 3 * 3; i >= searchStart; i -= 3 {
		if i < 0 || i+3 > len(seq) {
			continue
		}
		if TranslateCodon(seq[i:i+3]) == 'C' {
			cysPos = i
			break
		}
	}
	if cysPos < 0 {
		return false
	}

	searchEnd := min(c.JStop, c.JStart+30)
	endPos := -1
	for i := c.JStart; i+3 <= searchEnd; i += 3 {
		aa := TranslateCodon(seq[i : i+3])
		if aa == 'F' || (c.ChainType.IsHeavy() && aa == 'W') {
			endPos = i
			break
		}
	}
	if endPos < 0 || endPos+3 <= cysPos {
		return false
	}

	c.CDR3Start = cysPos
	c.CDR3DNA = seq[cysPos : endPos+3]
	c.CDR3AA = TranslateSequence(c.CDR3DNA)
	return true
}

// refineBoundary slides the reference segment's end (for V, vEnd is
// searched) or start (for J) across +/-maxShift around the inbound
// coordinate and returns the offset minimizing mismatches, along with
// the matching reference offset (how many reference bases were
// consumed). This mirrors the original source's alignment-confidence
// nudging in opt_d.rs, generalized to V and J rather than D alone.
func (a *Annotator) refineBoundary(contig, ref string, start, end, maxShift int, isV bool) (int, int) {
	bestPos := end
	bestRefLen := end - start
	bestMismatches := hamming(contig[start:end], alignedRef(ref, isV, end-start))

	for shift := -maxShift; shift <= maxShift; shift++ {
		var s, e int
		if isV {
			s, e = start, end+shift
		} else {
			s, e = start+shift, end
		}
		if s < 0 || e > len(contig) || s >= e {
			continue
		}
		length := e - s
		window := alignedRef(ref, isV, length)
		mm := hamming(contig[s:e], window)
		if mm < bestMismatches {
			bestMismatches = mm
			if isV {
				bestPos = e
			} else {
				bestPos = s
			}
			bestRefLen = length
		}
	}
	return bestPos, bestRefLen
}

// alignedRef returns the reference window that would align against a
// segment of the given length: the last `length` bases of ref for a V
// (3' end anchored at V..J), or the first `length` bases for a J (5'
// end anchored).
func alignedRef(ref string, isV bool, length int) string {
	if length <= 0 {
		return ""
	}
	if length > len(ref) {
		length = len(ref)
	}
	if isV {
		return ref[len(ref)-length:]
	}
	return ref[:length]
}

func hamming(a, b string) int {
	n := min(len(a), len(b))
	mm := len(a) - n + len(b) - n
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			mm++
		}
	}
	return mm
}

// detectD scans every universal D segment at every offset in the
// v_stop..j_start window and returns the id of the best-scoring
// candidate, grounded on the original source's opt_d.rs: a D call is
// accepted only if it beats a fixed identity threshold over its full
// length, since D segments are short enough that spurious matches are
// common.
func (a *Annotator) detectD(contig string, vStop, jStart int) (int, bool) {
	const minIdentity = 0.75
	const minDLen = 5

	best := -1
	bestScore := -1.0

	for _, dID := range a.ref.Ds() {
		seg := a.ref.Segment(dID)
		if seg == nil || seg.Len() < minDLen {
			continue
		}
		for offset := vStop; offset+seg.Len() <= jStart; offset++ {
			mm := hamming(contig[offset:offset+seg.Len()], seg.Bases)
			identity := 1.0 - float64(mm)/float64(seg.Len())
			if identity >= minIdentity && identity > bestScore {
				bestScore = identity
				best = dID
			}
		}
	}

	return best, best >= 0
}

// confirmCDR3 re-translates the inbound CDR3 DNA call and checks that
// the translation matches the CDR3 amino-acid call, begins with a
// conserved cysteine, and ends with phenylalanine (tryptophan is also
// accepted on heavy chains, IGH/TRB). Any failed check is returned as a
// MalformedInput error, which fails Annotate for that contig.
func (a *Annotator) confirmCDR3(c *contigio.Contig) error {
	if c.CDR3DNA == "" {
		return nil
	}
	translated := TranslateSequence(c.CDR3DNA)
	if !strings.EqualFold(translated, c.CDR3AA) {
		return cloneerr.MalformedInput(
			fmt.Sprintf("contig %s: cdr3 translation %q does not match cdr3 amino acid call %q", c.Name, translated, c.CDR3AA), nil)
	}
	if len(translated) == 0 || translated[0] != 'C' {
		return cloneerr.MalformedInput(fmt.Sprintf("contig %s: cdr3 does not begin with conserved cysteine", c.Name), nil)
	}
	last := translated[len(translated)-1]
	if c.ChainType.IsHeavy() {
		if last != 'W' && last != 'F' {
			return cloneerr.MalformedInput(fmt.Sprintf("contig %s: heavy-chain cdr3 does not end in conserved W/F", c.Name), nil)
		}
	} else if last != 'F' {
		return cloneerr.MalformedInput(fmt.Sprintf("contig %s: light-chain cdr3 does not end in conserved F", c.Name), nil)
	}
	return nil
}

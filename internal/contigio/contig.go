// Package contigio reads per-contig annotation records and produces
// typed per-contig entries (component B). It mirrors the teacher's
// internal/vcf package shape — a single ContigParser interface with
// one streaming implementation — but the inbound format here is the
// newline-delimited JSON record stream described in spec.md section 6,
// not VCF/MAF.
package contigio

import "github.com/clonoweave/clonoweave/internal/refdata"

// RegionAnnotation is one element of the optional upstream region
// annotation list (spec.md section 6, inbound option (a)).
type RegionAnnotation struct {
	RegionType         string // "5'UTR", "L-REGION+V-REGION", "D-REGION", "J-REGION", "C-REGION"
	FeatureID          string
	AnnotationMatchStart int
	AnnotationMatchEnd   int
	AnnotationLength     int
	ContigMatchStart     int
	ContigMatchEnd       int
	CIGAR                string
}

// VAnn is one element of Contig.AnnV: an alignment tuple
// (tig_offset, length, v_ref_id, ref_offset, mismatches) describing
// part of the V alignment. A Contig has one tuple normally, or two iff
// a single in-frame indel is present.
type VAnn struct {
	TigOffset   int
	Length      int
	VRefID      int
	RefOffset   int
	Mismatches  int
}

// Contig is a per-cell, per-chain raw observation, corresponding to
// spec.md section 3's Contig entity / the original source's TigData.
type Contig struct {
	Barcode       string
	DatasetIndex  int
	OriginIndex   *int
	DonorIndex    *int
	TagIndex      *int

	FullSeq   string
	FullQuals []byte // decoded 0-based Phred

	VStart, VStop, VStopRef int
	JStart, JStartRef, JStop int
	CStart                  *int

	VRefID int
	JRefID int
	URefID *int
	DRefID *int
	CRefID *int

	CDR3Start int
	CDR3DNA   string
	CDR3AA    string

	ChainType refdata.ChainType

	AnnV []VAnn

	UMICount  int
	ReadCount int

	// Contig name / id, kept for diagnostics only.
	Name string
}

// Left reports whether this chain plays the heavy role
// (chain_type in {IGH, TRB}) per the GLOSSARY.
func (c *Contig) Left() bool {
	return c.ChainType.IsHeavy()
}

// Seq returns the V..J slice of FullSeq.
func (c *Contig) Seq() string {
	return c.FullSeq[c.VStart:c.JStop]
}

// Quals returns the V..J slice of FullQuals.
func (c *Contig) Quals() []byte {
	return c.FullQuals[c.VStart:c.JStop]
}

// Validate checks the Contig invariants from spec.md section 3:
//
//	v_start <= v_stop <= j_start <= j_stop <= len(full_seq)
//	cdr3_start + 3*len(cdr3_aa) <= len(seq)
//	len(full_seq) == len(full_quals)
func (c *Contig) Validate() error {
	if !(c.VStart <= c.VStop && c.VStop <= c.JStart && c.JStart <= c.JStop && c.JStop <= len(c.FullSeq)) {
		return errInvalidCoords
	}
	if c.CDR3Start+3*len(c.CDR3AA) > len(c.Seq()) {
		return errInvalidCDR3
	}
	if len(c.FullSeq) != len(c.FullQuals) {
		return errSeqQualMismatch
	}
	return nil
}

package annotate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

func loadTestRef(t *testing.T) *refdata.Index {
	t.Helper()
	const fasta = `>0|TRBV1|V|TRB|
CAGCAGCTGGTGCAGTCTGGGGCT
>1|TRBJ1|J|TRB|
TTCGGCCCAGGCACCCGGCTGAAA
>2|TRBD1|D|TRB|
GGGACAGGG
`
	path := filepath.Join(t.TempDir(), "ref.fasta")
	require.NoError(t, os.WriteFile(path, []byte(fasta), 0o644))
	idx, err := refdata.Load(path)
	require.NoError(t, err)
	return idx
}

func TestAnnotateRefinesBoundariesAndCallsD(t *testing.T) {
	ref := loadTestRef(t)
	a := New(ref)

	seq := "CAGCAGCTGGTGCAGTCTGGGGCT" + "GGGACAGGG" + "TTCGGCCCAGGCACCCGGCTGAAA"
	c := &contigio.Contig{
		Name:      "c1",
		FullSeq:   seq,
		FullQuals: make([]byte, len(seq)),
		VStart:    0, VStop: 24, VStopRef: 24,
		JStart: len(seq) - 24, JStop: len(seq),
		VRefID:    0,
		JRefID:    1,
		ChainType: refdata.TRB,
		// The fixture V has no cysteine codon, so the CDR3 call is
		// supplied rather than derived.
		CDR3DNA: "TGTGCTTTC",
		CDR3AA:  "CAF",
	}

	out, err := a.Annotate(c)
	require.NoError(t, err)
	require.NotNil(t, out.DRefID)
	require.Equal(t, 2, *out.DRefID)
}

func TestConfirmCDR3Rejects(t *testing.T) {
	ref := loadTestRef(t)
	a := New(ref)

	c := &contigio.Contig{
		Name:      "c1",
		FullSeq:   "CAGCAGCTGGTGCAGTCTGGGGCTTTCGGCCCAGGCACCCGGCTGAAA",
		FullQuals: make([]byte, 48),
		VStart:    0, VStop: 24, VStopRef: 24,
		JStart: 24, JStop: 48,
		VRefID:    0,
		JRefID:    1,
		ChainType: refdata.TRB,
		CDR3DNA:   "TGTGCTGGG",
		CDR3AA:    "ZZZ",
	}

	_, err := a.Annotate(c)
	require.Error(t, err)
}

func TestDeriveAnnVDetectsSingleInFrameDeletion(t *testing.T) {
	ref := loadTestRef(t)
	a := New(ref)
	vBases := ref.Segment(0).Bases // CAGCAGCTGGTGCAGTCTGGGGCT, 24 bases

	// Drop three bases (in-frame) out of the middle of the V segment.
	deleted := vBases[:12] + vBases[15:]
	c := &contigio.Contig{
		Name:    "c-del",
		FullSeq: deleted,
		VStart:  0, VStop: len(deleted),
		VRefID: 0,
	}

	annv := a.deriveAnnV(c, vBases)
	require.Len(t, annv, 2)
	require.Equal(t, 0, annv[0].RefOffset)
	require.Equal(t, annv[0].TigOffset+annv[0].Length, annv[1].TigOffset)
	require.Greater(t, annv[1].RefOffset, annv[0].RefOffset+annv[0].Length)
}

func TestDeriveCDR3FindsMotifAnchors(t *testing.T) {
	ref := loadTestRef(t)
	a := New(ref)

	// TGT GCT ... TTC: cysteine codon, two filler codons, phenylalanine.
	seq := "TGTGCTAAATTC"
	c := &contigio.Contig{
		Name:      "c-cdr3",
		FullSeq:   seq,
		VStart:    0, VStop: 3,
		JStart: len(seq) - 3, JStop: len(seq),
		ChainType: refdata.TRA,
	}

	require.True(t, a.deriveCDR3(c))
	require.Equal(t, "TGTGCTAAATTC", c.CDR3DNA)
	require.Equal(t, "CAKF", c.CDR3AA)
}

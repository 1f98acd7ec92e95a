package xfilter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/exact"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

func sub(barcode string, dataset int, origin *int, chains ...exact.Chain) *exact.Subclonotype {
	return &exact.Subclonotype{
		Chains: chains,
		Clones: []exact.Clone{{Barcode: barcode, DatasetIndex: dataset, OriginIndex: origin}},
	}
}

// heavy and light build test chains whose Seq is derived from (v, j) so
// that distinct gene calls compare as distinct sequences, matching how
// real V..J sequences vary by which segments were used.
func heavy(v, j, umi int) exact.Chain {
	return exact.Chain{VRefID: v, JRefID: j, ChainType: int(refdata.TRB), UMICount: umi, Seq: fmt.Sprintf("HEAVYSEQ-%d-%d", v, j), CDR3AA: "CAR"}
}

func light(v, j, umi int) exact.Chain {
	return exact.Chain{VRefID: v, JRefID: j, ChainType: int(refdata.TRA), UMICount: umi, Seq: fmt.Sprintf("LIGHTSEQ-%d-%d", v, j), CDR3AA: "CAV"}
}

func TestFoursieFilterKeepsUnrecognizedFourChainCells(t *testing.T) {
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, nil, heavy(0, 1, 5), light(2, 3, 5), heavy(4, 5, 1), light(6, 7, 1)),
		sub("BBB-1", 0, nil, heavy(99, 99, 5), light(88, 88, 5)), // distinct pair, shares none of AAA-1's (heavy,light) combos
	}
	out := FoursieFilter(subs)
	require.Len(t, out, 2) // no independent 2-chain recurrence for any of its pairs
}

func TestFoursieFilterDropsCellsWhoseChainPairRecursIndependently(t *testing.T) {
	shared := heavy(0, 1, 5)
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, nil, shared, light(2, 3, 5), heavy(4, 5, 1), light(6, 7, 1)),
		sub("BBB-1", 0, nil, shared, light(2, 3, 5)), // independent 2-chain subclonotype with the same (heavy,light) pair
	}
	out := FoursieFilter(subs)
	require.Len(t, out, 1)
	require.Equal(t, "BBB-1", out[0].Barcode())
}

func TestGelBeadFilterDropsLowUMICellInSameBin(t *testing.T) {
	contig := func(umi int) *contigio.Contig { return &contigio.Contig{UMICount: umi} }
	sc := &exact.Subclonotype{
		Chains: []exact.Chain{heavy(0, 1, 100), light(2, 3, 100)},
		Clones: []exact.Clone{
			{Barcode: "AAAAAAAA-1", Contigs: []*contigio.Contig{contig(100)}},
			{Barcode: "AAAAAAAA-2", Contigs: []*contigio.Contig{contig(1)}},
		},
	}

	out := GelBeadFilter([]*exact.Subclonotype{sc})
	require.Len(t, out, 1)
	require.Len(t, out[0].Clones, 1)
	require.Equal(t, "AAAAAAAA-1", out[0].Clones[0].Barcode)
}

func TestGelBeadFilterKeepsComparableCells(t *testing.T) {
	contig := func(umi int) *contigio.Contig { return &contigio.Contig{UMICount: umi} }
	sc := &exact.Subclonotype{
		Chains: []exact.Chain{heavy(0, 1, 100), light(2, 3, 100)},
		Clones: []exact.Clone{
			{Barcode: "AAAAAAAA-1", Contigs: []*contigio.Contig{contig(50)}},
			{Barcode: "AAAAAAAA-2", Contigs: []*contigio.Contig{contig(60)}},
		},
	}

	out := GelBeadFilter([]*exact.Subclonotype{sc})
	require.Len(t, out, 1)
	require.Len(t, out[0].Clones, 2)
}

func TestBarcodeReuseFilterAbortsOnSharedCDR3AcrossDatasets(t *testing.T) {
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, nil, heavy(0, 1, 5), light(2, 3, 5)),
		sub("AAA-1", 1, nil, heavy(0, 1, 5), light(2, 3, 5)), // same barcode, different dataset, shares CDR3_AA "CAR"
	}
	err := BarcodeReuseFilter(subs)
	require.Error(t, err)
}

func TestBarcodeReuseFilterAllowsTrulyDistinctChains(t *testing.T) {
	h2 := exact.Chain{VRefID: 9, JRefID: 9, ChainType: int(refdata.TRB), UMICount: 5, Seq: "OTHERSEQ", CDR3AA: "CASDIFFERENT"}
	l2 := exact.Chain{VRefID: 9, JRefID: 9, ChainType: int(refdata.TRA), UMICount: 5, Seq: "OTHERLIGHT", CDR3AA: "CAVDIFFERENT"}
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, nil, heavy(0, 1, 5), light(2, 3, 5)),
		sub("AAA-1", 1, nil, h2, l2),
	}
	require.NoError(t, BarcodeReuseFilter(subs))
}

func TestCrossFilterDropsSequenceConfinedToOneDatasetInASharedOrigin(t *testing.T) {
	origin := 0
	var subs []*exact.Subclonotype
	// Dataset 0: 6 cells, all carrying the suspect sequence with low UMI support.
	for i := 0; i < 6; i++ {
		subs = append(subs, sub("BC-A", 0, &origin, heavy(0, 1, 1), light(2, 3, 1)))
	}
	// Dataset 1, same origin: 60 cells with an unrelated chain signature,
	// so p = (6/66)^6 is well under 1e-6.
	for i := 0; i < 60; i++ {
		other := exact.Chain{VRefID: 9, JRefID: 9, ChainType: int(refdata.TRB), UMICount: 5, Seq: "FILLERSEQ", CDR3AA: "CAZ"}
		subs = append(subs, sub("BC-B", 1, &origin, other))
	}

	opt := cloneconfig.ClonoFiltOpt{NCross: 1}
	out := CrossFilter(subs, opt)
	require.Less(t, len(out), len(subs))
}

func TestCrossFilterKeepsSequenceSharedAcrossDatasets(t *testing.T) {
	origin := 0
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, &origin, heavy(0, 1, 5), light(2, 3, 5)),
		sub("BBB-1", 1, &origin, heavy(0, 1, 5), light(2, 3, 5)),
	}
	opt := cloneconfig.ClonoFiltOpt{NCross: 1}
	out := CrossFilter(subs, opt)
	require.Len(t, out, 2)
}

func TestGraphFilterRuns(t *testing.T) {
	subs := []*exact.Subclonotype{
		sub("AAA-1", 0, nil, heavy(0, 1, 20), light(2, 3, 20)),
		sub("BBB-1", 0, nil, heavy(0, 1, 20), light(2, 3, 20)),
	}
	out := GraphFilter(subs)
	require.NotNil(t, out)
}

package refdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleRef = `>0|TRBV1|V|TRB|
CAGCAGCTGGTGCAGTCTGGGGCT
>1|TRBJ1|J|TRB|
TTCGGCCCAGGCACCCGGCTGAAA
>2|TRBC1|C|TRB|
GAGGACCTGAACAAGGTGTTCCCA
>3|TRBD1|D|TRB|
GGGACAGGGGGC
`

func TestParseFASTA(t *testing.T) {
	idx, err := parseFASTA(strings.NewReader(sampleRef))
	require.NoError(t, err)

	require.Equal(t, 4, idx.Len())
	require.True(t, idx.IsV(0))
	require.True(t, idx.IsJ(1))
	require.True(t, idx.IsC(2))
	require.True(t, idx.IsD(3))

	id, ok := idx.IDByName("TRBV1")
	require.True(t, ok)
	require.Equal(t, 0, id)

	require.Equal(t, "CAGCAGCTGGTGCAGTCTGGGGCT", idx.Segment(0).Bases)
	require.Equal(t, TRB, idx.RType(0))
}

func TestParseFASTAUnknownRegion(t *testing.T) {
	_, err := parseFASTA(strings.NewReader(">0|X|Q|TRB|\nACGT\n"))
	require.Error(t, err)
}

func TestParseFASTAUnknownChain(t *testing.T) {
	_, err := parseFASTA(strings.NewReader(">0|X|V|ZZZ|\nACGT\n"))
	require.Error(t, err)
}

func TestAddAllele(t *testing.T) {
	idx, err := parseFASTA(strings.NewReader(sampleRef))
	require.NoError(t, err)

	aid := idx.AddAllele(&Segment{
		Name:           "TRBV1*alt1",
		Region:         RegionV,
		Chain:          TRB,
		Bases:          "CAGCAGCTGGTGCAGTCTGGGGCC",
		IsAllele:       true,
		OriginalVRefID: 0,
		DonorIndex:     0,
		AltID:          0,
	})
	require.Equal(t, 4, aid)
	require.Equal(t, []int{4}, idx.AllelesOf(0))
}

func TestChainTypeRoles(t *testing.T) {
	require.True(t, IGH.IsHeavy())
	require.True(t, TRB.IsHeavy())
	require.False(t, IGK.IsHeavy())
	require.True(t, IGK.IsLight())
	require.True(t, IGL.IsLight())
	require.False(t, TRA.IsLight())
	require.True(t, TRA.IsTCR())
	require.False(t, IGH.IsTCR())
}

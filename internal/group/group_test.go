package group

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/join"
	"github.com/clonoweave/clonoweave/internal/refdata"
	"github.com/clonoweave/clonoweave/internal/unionfind"
)

func TestLevenshtein(t *testing.T) {
	require.Equal(t, 0, Levenshtein("ABC", "ABC"))
	require.Equal(t, 1, Levenshtein("ABC", "ABD"))
	require.Equal(t, 3, Levenshtein("", "ABC"))
}

func TestPercentIdentity(t *testing.T) {
	require.Equal(t, 100.0, PercentIdentity("ABC", "ABC"))
	require.InDelta(t, 66.6, PercentIdentity("ABC", "ABD"), 0.5)
}

func testRef(t *testing.T) *refdata.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.fasta")
	require.NoError(t, os.WriteFile(path, []byte(">0|TRBV1|V|TRB|\nACGT\n>1|TRBJ1|J|TRB|\nACGT\n"), 0o644))
	idx, err := refdata.Load(path)
	require.NoError(t, err)
	return idx
}

func TestBuildClonotypesAndNone(t *testing.T) {
	infos := []join.CloneInfo{
		{BCs: []string{"AAA-1"}, Chains: []join.ChainInfo{{VRefID: 0, JRefID: 1, CDR3: "TGTAAA", Left: true}}},
		{BCs: []string{"BBB-1", "CCC-1"}, Chains: []join.ChainInfo{{VRefID: 0, JRefID: 1, CDR3: "TGTAAA", Left: true}}},
	}
	uf := unionfind.New(2)
	clonos := BuildClonotypes(infos, uf)
	require.Len(t, clonos, 2)

	groups := None(clonos)
	require.Len(t, groups, 2)
	require.GreaterOrEqual(t, clonos[groups[0].Members[0].ClonotypeIdx].Cells, clonos[groups[1].Members[0].ClonotypeIdx].Cells)
}

func TestSymmetricGroupsBySimilarity(t *testing.T) {
	ref := testRef(t)
	infos := []join.CloneInfo{
		{BCs: []string{"AAA-1"}, Chains: []join.ChainInfo{{VRefID: 0, JRefID: 1, CDR3: "TGTAAA", Left: true}}},
		{BCs: []string{"BBB-1"}, Chains: []join.ChainInfo{{VRefID: 0, JRefID: 1, CDR3: "TGTAAA", Left: true}}},
	}
	uf := unionfind.New(2)
	clonos := BuildClonotypes(infos, uf)

	opt := cloneconfig.ClonoGroupOpt{HeavyPC: 90, LightPC: 90}
	groups := Symmetric(infos, clonos, ref, opt)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 2)
}

func TestAsymmetricBoundsByTopAndMax(t *testing.T) {
	infos := []join.CloneInfo{
		{Chains: []join.ChainInfo{{CDR3: "TGTAAA"}}},
		{Chains: []join.ChainInfo{{CDR3: "TGTAAC"}}},
		{Chains: []join.ChainInfo{{CDR3: "CCCCCC"}}},
	}
	clonos := []Clonotype{{Infos: []int{0}}, {Infos: []int{1}}, {Infos: []int{2}}}

	groups := Asymmetric(infos, clonos, []int{0}, 5, 2)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Members, 2) // centre + close neighbor, far one excluded by max
}

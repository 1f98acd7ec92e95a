package protoxchg

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clonoweave/clonoweave/internal/group"
	"github.com/clonoweave/clonoweave/internal/join"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCloseAndWritePotentialJoins(t *testing.T) {
	s := openInMemory(t)

	pots := []join.PotentialJoin{
		{K1: 0, K2: 1, NRefs: 2, CD: 1, Diffs: 3, Score: 2.5, P1: 0.01, Mult: 4.0, Err: false},
		{K1: 1, K2: 2, NRefs: 2, CD: 0, Diffs: 0, Score: 0, P1: 0, Mult: 1.0, Err: true},
	}
	require.NoError(t, s.WritePotentialJoins(pots))
}

func TestWritePotentialJoinsEmpty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WritePotentialJoins(nil))
}

func TestClonotypeWriterWritesRows(t *testing.T) {
	path := t.TempDir() + "/ref.fasta"
	require.NoError(t, os.WriteFile(path, []byte(">0|TRBV1|V|TRB|\nACGT\n>1|TRBJ1|J|TRB|\nACGT\n"), 0o644))
	ref, err := refdata.Load(path)
	require.NoError(t, err)

	infos := []join.CloneInfo{
		{BCs: []string{"AAA-1"}, Chains: []join.ChainInfo{{VRefID: 0, JRefID: 1, CDR3: "CAR", Left: true}}},
	}
	clonos := []group.Clonotype{{Infos: []int{0}, Cells: 1}}
	groups := []group.Group{{Members: []group.Member{{ClonotypeIdx: 0}}}}

	var buf bytes.Buffer
	w := NewClonotypeWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteGroups(groups, clonos, infos, ref))
	require.NoError(t, w.Flush())

	require.Contains(t, buf.String(), "group_id")
	require.Contains(t, buf.String(), "CAR")
}

func TestGroupWriterWritesSummaryRows(t *testing.T) {
	clonos := []group.Clonotype{{Infos: []int{0}, Cells: 3}, {Infos: []int{1}, Cells: 1}}
	groups := []group.Group{{Members: []group.Member{{ClonotypeIdx: 0}, {ClonotypeIdx: 1}}}}

	var buf bytes.Buffer
	w := NewGroupWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteGroups(groups, clonos))
	require.NoError(t, w.Flush())

	require.Contains(t, buf.String(), "group_id")
	require.Contains(t, buf.String(), "0\t2\t4\n")
}

func TestSummaryWriterFormatsCounts(t *testing.T) {
	var buf bytes.Buffer
	w := NewSummaryWriter(&buf)
	require.NoError(t, w.Write(10, 3, 2, 5, 1))
	require.Contains(t, buf.String(), "cells: 10")
	require.Contains(t, buf.String(), "clonotypes: 3")
}

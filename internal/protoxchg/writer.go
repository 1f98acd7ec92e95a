// Package protoxchg holds the pipeline's output writers: the
// clonotype/group tab-delimited writer and the DuckDB-backed
// diagnostic sink for PotentialJoin records, adapted from the
// teacher's internal/output.TabWriter and internal/duckdb.Store.
package protoxchg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clonoweave/clonoweave/internal/group"
	"github.com/clonoweave/clonoweave/internal/join"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// ClonotypeWriter writes one row per clonotype, per group, in a
// tab-delimited format analogous to the teacher's TabWriter.
type ClonotypeWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewClonotypeWriter creates a writer over w.
func NewClonotypeWriter(w io.Writer) *ClonotypeWriter {
	return &ClonotypeWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"group_id",
			"clonotype_id",
			"ncells",
			"nchains",
			"v_genes",
			"j_genes",
			"cdr3_aa",
		},
	}
}

// WriteHeader writes the header line.
func (cw *ClonotypeWriter) WriteHeader() error {
	_, err := cw.w.WriteString(strings.Join(cw.columns, "\t") + "\n")
	return err
}

// WriteGroups writes every group's clonotypes, in the order given.
func (cw *ClonotypeWriter) WriteGroups(groups []group.Group, clonos []group.Clonotype, infos []join.CloneInfo, ref *refdata.Index) error {
	for gi, g := range groups {
		for _, m := range g.Members {
			if err := cw.writeClonotype(gi, clonos[m.ClonotypeIdx], infos, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cw *ClonotypeWriter) writeClonotype(groupID int, c group.Clonotype, infos []join.CloneInfo, ref *refdata.Index) error {
	if len(c.Infos) == 0 {
		return nil
	}
	rep := infos[c.Infos[0]]

	var vGenes, jGenes, cdr3s []string
	for _, ch := range rep.Chains {
		vGenes = append(vGenes, ref.Name(ch.VRefID))
		jGenes = append(jGenes, ref.Name(ch.JRefID))
		cdr3s = append(cdr3s, ch.CDR3)
	}

	row := []string{
		strconv.Itoa(groupID),
		strconv.Itoa(c.Infos[0]),
		strconv.Itoa(c.Cells),
		strconv.Itoa(len(rep.Chains)),
		strings.Join(vGenes, ","),
		strings.Join(jGenes, ","),
		strings.Join(cdr3s, ","),
	}
	_, err := cw.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// Flush flushes buffered output.
func (cw *ClonotypeWriter) Flush() error {
	return cw.w.Flush()
}

// GroupWriter writes one row per group — the "Outbound to grouping
// consumers" destination, distinct from ClonotypeWriter's per-clonotype
// rows, mirroring the teacher's separate TabWriter/ValidationWriter
// split by destination.
type GroupWriter struct {
	w *bufio.Writer
}

// NewGroupWriter creates a writer over w.
func NewGroupWriter(w io.Writer) *GroupWriter {
	return &GroupWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (gw *GroupWriter) WriteHeader() error {
	_, err := gw.w.WriteString("group_id\tn_clonotypes\ttotal_cells\n")
	return err
}

// WriteGroups writes one summary row per group.
func (gw *GroupWriter) WriteGroups(groups []group.Group, clonos []group.Clonotype) error {
	for gi, g := range groups {
		cells := 0
		for _, m := range g.Members {
			cells += clonos[m.ClonotypeIdx].Cells
		}
		if _, err := fmt.Fprintf(gw.w, "%d\t%d\t%d\n", gi, len(g.Members), cells); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered output.
func (gw *GroupWriter) Flush() error {
	return gw.w.Flush()
}

// SummaryWriter writes the run's drop/kill counters, grounded on the
// teacher's validation report format.
type SummaryWriter struct {
	w io.Writer
}

// NewSummaryWriter creates a writer over w.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: w}
}

// Write prints the summary block.
func (sw *SummaryWriter) Write(nCells, nClonotypes, nGroups int, dropped, killed int64) error {
	_, err := fmt.Fprintf(sw.w,
		"cells: %d\nclonotypes: %d\ngroups: %d\ndropped_records: %d\nkilled_chains: %d\n",
		nCells, nClonotypes, nGroups, dropped, killed)
	return err
}

// Package pipeline wires the clonoweave components end to end:
// contig ingest, boundary re-annotation, exact-subclonotype building,
// donor-allele inference, cross-filtering, joining, and grouping. It
// is the Go analogue of the original source's enclone_main driver
// loop, generalized from one monolithic function into a sequence of
// component calls a CLI (or a test) can invoke directly.
package pipeline

import (
	"fmt"

	"github.com/clonoweave/clonoweave/internal/annotate"
	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/clonolog"
	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/donor"
	"github.com/clonoweave/clonoweave/internal/exact"
	"github.com/clonoweave/clonoweave/internal/group"
	"github.com/clonoweave/clonoweave/internal/join"
	"github.com/clonoweave/clonoweave/internal/refdata"
	"github.com/clonoweave/clonoweave/internal/workpool"
	"github.com/clonoweave/clonoweave/internal/xfilter"
)

// Result holds every stage's output that a caller (CLI command or
// test) might want to inspect or hand to protoxchg's writers.
type Result struct {
	Subclonotypes []*exact.Subclonotype
	AlleleCalls   []donor.Call
	CloneInfos    []join.CloneInfo
	JoinResult    join.Result
	Clonotypes    []group.Clonotype
	Groups        []group.Group
}

// Run executes the full pipeline against contigs read from parser,
// using ref as the reference index and cfg as the run configuration.
// isBCR selects the BCR/TCR-specific join guards (component F); a run
// mixing both chain classes should be split by the caller beforehand,
// as the original source's per-dataset chain_type does.
func Run(parser contigio.ContigParser, ref *refdata.Index, cfg *cloneconfig.Control, isBCR bool, log *clonolog.Logger) (*Result, error) {
	contigs, err := readAll(parser)
	if err != nil {
		return nil, err
	}

	ann := annotate.New(ref)
	workers := cfg.GenOpt.Workers
	annotated := workpool.Map(contigs, workers, func(_ int, c *contigio.Contig) *contigio.Contig {
		if log.ShouldBailOut() {
			return c
		}
		out, err := ann.Annotate(c)
		if err != nil {
			log.RecordDrop(c.Barcode, err.Error())
			return nil
		}
		return out
	})

	var kept []*contigio.Contig
	for _, c := range annotated {
		if c != nil {
			kept = append(kept, c)
		}
	}

	builder := exact.NewBuilder()
	for _, c := range kept {
		builder.Add(c)
	}
	subs := builder.Build()

	calls := donor.Infer(subs, ref, cfg.AlleleAlgOpt)

	if err := xfilter.BarcodeReuseFilter(subs); err != nil {
		return nil, fmt.Errorf("barcode reuse check: %w", err)
	}
	subs = xfilter.GraphFilter(subs)
	if !cfg.ClonoFiltOpt.NWhitef {
		subs = xfilter.GelBeadFilter(subs)
	}
	if cfg.ClonoFiltOpt.WeakFoursies {
		subs = xfilter.FoursieFilter(subs)
	}
	subs = xfilter.CrossFilter(subs, cfg.ClonoFiltOpt)

	infos := join.BuildCloneInfos(subs, ref)
	jr := join.Run(infos, ref, cfg.JoinAlgOpt, cfg.ClonoFiltOpt, cfg.JoinPrintOpt, isBCR, workers, log)

	clonos := group.BuildClonotypes(infos, jr.UF)

	var groups []group.Group
	switch cfg.ClonoGroupOpt.Style {
	case "symmetric":
		groups = group.Symmetric(infos, clonos, ref, cfg.ClonoGroupOpt)
	case "asymmetric":
		groups = asymmetricGroups(infos, clonos, cfg.ClonoGroupOpt)
	default:
		groups = group.None(clonos)
	}

	return &Result{
		Subclonotypes: subs,
		AlleleCalls:   calls,
		CloneInfos:    infos,
		JoinResult:    jr,
		Clonotypes:    clonos,
		Groups:        groups,
	}, nil
}

func readAll(parser contigio.ContigParser) ([]*contigio.Contig, error) {
	var out []*contigio.Contig
	for {
		c, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("reading contig at line %d: %w", parser.LineNumber(), err)
		}
		if c == nil {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

// asymmetricGroups uses the single clonotype with the most cells (the
// first one on a tie) as the only centre, so it returns one group.
// No bucketing is done and no other centre is chosen.
func asymmetricGroups(infos []join.CloneInfo, clonos []group.Clonotype, opt cloneconfig.ClonoGroupOpt) []group.Group {
	if len(clonos) == 0 {
		return nil
	}
	top, max := parseAsymmetricBound(opt.AsymmetricDistBound)

	biggest := 0
	for i, c := range clonos {
		if c.Cells > clonos[biggest].Cells {
			biggest = i
		}
	}
	return group.Asymmetric(infos, clonos, []int{biggest}, top, max)
}

func parseAsymmetricBound(spec string) (top, max int) {
	top, max = 10, 10_000
	var n int
	if _, err := fmt.Sscanf(spec, "top=%d", &n); err == nil {
		top = n
		return
	}
	if _, err := fmt.Sscanf(spec, "max=%d", &n); err == nil {
		max = n
	}
	return
}

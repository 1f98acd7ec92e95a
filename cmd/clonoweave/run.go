package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/contigio"
	"github.com/clonoweave/clonoweave/internal/pipeline"
	"github.com/clonoweave/clonoweave/internal/protoxchg"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// runOptions holds the flags shared by annotate/join/group: each names
// one stage of the pipeline for display purposes, but all three drive
// the same end-to-end Run, matching the original source's convention
// that every stage runs on every invocation and the subcommand only
// picks what output gets written.
type runOptions struct {
	refPath     string
	inputPath   string
	outputPath  string
	groupOut    string
	duckdbPath  string
	isBCR       bool
	maxDiffs    int
	maxScore    float64
	groupStyle  string
	asymBound   string
	ncross      int
	minAlt      int
	workers     int
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().StringVar(&o.refPath, "ref", "", "V(D)J reference FASTA (required)")
	cmd.Flags().StringVar(&o.inputPath, "input", "-", "newline-delimited JSON contig stream ('-' for stdin)")
	cmd.Flags().StringVar(&o.outputPath, "output", "-", "clonotype output path ('-' for stdout)")
	cmd.Flags().StringVar(&o.groupOut, "group-output", "", "group summary output path (optional)")
	cmd.Flags().StringVar(&o.duckdbPath, "diagnostics", "", "DuckDB path for PotentialJoin diagnostics (optional)")
	cmd.Flags().BoolVar(&o.isBCR, "bcr", false, "input is BCR data (default TCR join guards)")
	cmd.Flags().IntVar(&o.maxDiffs, "max-diffs", 0, "override join_alg_opt.max_diffs (0 = default)")
	cmd.Flags().Float64Var(&o.maxScore, "max-score", 0, "override join_alg_opt.max_score (0 = default)")
	cmd.Flags().StringVar(&o.groupStyle, "group-style", "", "grouping mode: none, symmetric, asymmetric")
	cmd.Flags().StringVar(&o.asymBound, "asymmetric-bound", "", "asymmetric group bound, e.g. top=10 or max=10000")
	cmd.Flags().IntVar(&o.ncross, "ncross", 0, "run the cross filter when > 0 (0 disables)")
	cmd.Flags().IntVar(&o.minAlt, "min-alt", 0, "override allele_alg_opt.min_alt (0 = default)")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "worker goroutines (0 = runtime default)")
	cmd.MarkFlagRequired("ref")
}

func (o *runOptions) buildConfig() *cloneconfig.Control {
	cfg := cloneconfig.Default()
	if o.maxDiffs > 0 {
		cfg.JoinAlgOpt.MaxDiffs = o.maxDiffs
	}
	if o.maxScore > 0 {
		cfg.JoinAlgOpt.MaxScore = o.maxScore
	}
	if o.minAlt > 0 {
		cfg.AlleleAlgOpt.MinAlt = o.minAlt
	}
	cfg.ClonoFiltOpt.NCross = o.ncross
	cfg.ClonoGroupOpt.Style = o.groupStyle
	if o.asymBound != "" {
		cfg.ClonoGroupOpt.AsymmetricDistBound = o.asymBound
	}
	cfg.GenOpt.Workers = o.workers
	return cfg
}

func (o *runOptions) run(cmd *cobra.Command) error {
	ref, err := refdata.Load(o.refPath)
	if err != nil {
		return fmt.Errorf("loading reference: %w", err)
	}

	parser, err := contigio.NewParser(o.inputPath, ref)
	if err != nil {
		return fmt.Errorf("opening contig stream: %w", err)
	}
	defer parser.Close()

	cfg := o.buildConfig()
	if err := cfg.Validate(true, true); err != nil {
		return err
	}

	res, err := pipeline.Run(parser, ref, cfg, o.isBCR, logger)
	if err != nil {
		return err
	}

	out, err := openOutput(o.outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	cw := protoxchg.NewClonotypeWriter(out)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("writing clonotype header: %w", err)
	}
	if err := cw.WriteGroups(res.Groups, res.Clonotypes, res.CloneInfos, ref); err != nil {
		return fmt.Errorf("writing clonotypes: %w", err)
	}
	if err := cw.Flush(); err != nil {
		return fmt.Errorf("flushing clonotype output: %w", err)
	}

	if o.groupOut != "" {
		gout, err := openOutput(o.groupOut)
		if err != nil {
			return err
		}
		defer gout.Close()

		gw := protoxchg.NewGroupWriter(gout)
		if err := gw.WriteHeader(); err != nil {
			return fmt.Errorf("writing group header: %w", err)
		}
		if err := gw.WriteGroups(res.Groups, res.Clonotypes); err != nil {
			return fmt.Errorf("writing groups: %w", err)
		}
		if err := gw.Flush(); err != nil {
			return fmt.Errorf("flushing group output: %w", err)
		}
	}

	if o.duckdbPath != "" {
		store, err := protoxchg.Open(o.duckdbPath)
		if err != nil {
			return fmt.Errorf("opening diagnostics store: %w", err)
		}
		defer store.Close()
		if err := store.WritePotentialJoins(res.JoinResult.Potential); err != nil {
			return fmt.Errorf("writing join diagnostics: %w", err)
		}
	}

	dropped, killed := logger.Counts()
	sw := protoxchg.NewSummaryWriter(cmd.ErrOrStderr())
	return sw.Write(len(res.Subclonotypes), len(res.Clonotypes), len(res.Groups), dropped, killed)
}

func openOutput(path string) (outputCloser, error) {
	if path == "-" || path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file %s: %w", path, err)
	}
	return f, nil
}

type outputCloser interface {
	Write(p []byte) (int, error)
	Close() error
}

type nopCloser struct{ *os.File }

func (nopCloser) Close() error { return nil }

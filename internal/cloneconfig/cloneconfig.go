// Package cloneconfig holds the clonoweave run configuration: the
// equivalent of the original EncloneControl global, partitioned into
// per-component option records (spec.md section 9's "Global mutable
// state" design note) so that each component can be constructed and
// tested against its own slice of configuration.
//
// The CLI layer builds a Control from Default() plus its own
// command-line flags. The viper-managed ~/.clonoweave.yaml file is
// shown and edited by the config subcommand but is not merged into
// this tree. Defaults live here so components behave sensibly when
// constructed directly in tests.
package cloneconfig

import (
	"regexp"

	"github.com/clonoweave/clonoweave/internal/cloneerr"
)

// JoinAlgOpt tunes the Join Engine (component F).
type JoinAlgOpt struct {
	MaxDiffs      int     // cheap-rejection threshold on total V..J mismatches
	MaxCDR3Diffs  int     // cheap-rejection threshold on CDR3 mismatches
	MaxScore      float64 // acceptance threshold on the computed score
	MaxDegradation int    // rejects pairs whose per-side total mutation counts diverge
	RefVTrim      int     // bases trimmed from V-right when counting shares/indeps
	RefJTrim      int     // bases trimmed from J-left when counting shares/indeps
	CDR3Mult      float64 // concentration-guard multiplier
	MultPow       float64 // default CDR3-penalty base (mult_pow^cd)
	OldMult       bool    // use legacy partial_bernoulli_sum penalty instead of mult_pow^cd
	OldLight      bool    // disable the light-chain constant-region guard
	MergeOnesies  bool    // create and merge onesies where completely unambiguous
	Easy          bool    // make joins even if core condition violated
}

// DefaultJoinAlgOpt returns enclone's published defaults.
func DefaultJoinAlgOpt() JoinAlgOpt {
	return JoinAlgOpt{
		MaxDiffs:       1000,
		MaxCDR3Diffs:   15,
		MaxScore:       100_000.0,
		MaxDegradation: 3,
		RefVTrim:       15,
		RefJTrim:       15,
		CDR3Mult:       3.0,
		MultPow:        80.0,
	}
}

// ClonoFiltOpt configures cross-filters and clonotype admission
// (component G plus filtering knobs consumed elsewhere).
type ClonoFiltOpt struct {
	NCross        int            // any value > 0 enables G.2, 0 disables it; no origin-count threshold is applied
	NWhitef       bool           // disable G.4 (gel-bead filter), mirrors gen_opt.nwhitef
	WeakFoursies  bool           // enable G.5 (foursie filter)
	MergeAllImpropers bool       // admit 1-chain exact subclonotypes (onesies) for join
	Donor         bool           // allow cross-donor joins (if false, forbid them)
	CDR3          *regexp.Regexp // only show clonotypes having one of these CDR3_AA sequences
}

// GeneralOpt holds miscellaneous options, mirroring defs.rs GeneralOpt.
type GeneralOpt struct {
	JC1     bool // only report J/C-gap notes when > 1
	Workers int  // number of worker goroutines; 0 = runtime.NumCPU()
}

// ClonoGroupOpt configures the Grouper (component H).
type ClonoGroupOpt struct {
	Style string // "", "symmetric", "asymmetric"

	// Symmetric predicates.
	VJRefname        bool
	VDJRefname       bool
	VHeavyRefname    bool
	VJHeavyRefname   bool
	VDJHeavyRefname  bool
	VJLen            bool
	CDR3Len          bool
	CDR3HeavyLen     bool
	CDR3LightLen     bool

	// Similarity-join thresholds (percent, 0 disables).
	HeavyPC       float64
	LightPC       float64
	AAHeavyPC     float64
	AALightPC     float64
	CDR3HeavyPC   float64
	CDR3LightPC   float64
	CDR3AAHeavyPC float64
	CDR3AALightPC float64

	// Post-filters.
	MinGroup       int
	MinGroupDonors int
	CDR3HLenVar    bool

	// Asymmetric bound: "top=N" or "max=D", mutually exclusive.
	AsymmetricDistBound string
}

// AlleleAlgOpt configures donor-allele inference (component E).
type AlleleAlgOpt struct {
	MinAlt int // minimum observation count for a candidate alt position
}

// DefaultAlleleAlgOpt returns enclone's published default.
func DefaultAlleleAlgOpt() AlleleAlgOpt {
	return AlleleAlgOpt{MinAlt: 4}
}

// JoinPrintOpt configures diagnostic verbosity for PotentialJoin records.
type JoinPrintOpt struct {
	ShowBC bool // include barcodes-on-each-side in PotentialJoin diagnostics
}

// Control is the full configuration tree, equivalent to EncloneControl.
// It is constructed once per run and passed by read-only reference to
// every component; the bail-out flag is the sole mutable field and
// lives on the shared *clonolog.Logger instead, per spec.md section 5.
type Control struct {
	GenOpt         GeneralOpt
	JoinAlgOpt     JoinAlgOpt
	JoinPrintOpt   JoinPrintOpt
	ClonoFiltOpt   ClonoFiltOpt
	ClonoGroupOpt  ClonoGroupOpt
	AlleleAlgOpt   AlleleAlgOpt
}

// Default returns a Control populated with enclone's published defaults.
func Default() *Control {
	return &Control{
		JoinAlgOpt:   DefaultJoinAlgOpt(),
		AlleleAlgOpt: DefaultAlleleAlgOpt(),
	}
}

// Validate checks for DegenerateConfiguration: a grouping predicate
// referring to a chain class that cannot exist given the rest of the
// configuration. heavyPresent/lightPresent describe whether the run's
// data is expected to contain heavy/light chains at all (BCR data
// always has both; some TCR-only runs might not, if e.g. only TRB was
// captured).
func (c *Control) Validate(heavyPresent, lightPresent bool) error {
	g := c.ClonoGroupOpt
	if !heavyPresent && (g.VHeavyRefname || g.VJHeavyRefname || g.VDJHeavyRefname ||
		g.CDR3HeavyLen || g.HeavyPC > 0 || g.AAHeavyPC > 0 || g.CDR3HeavyPC > 0 || g.CDR3AAHeavyPC > 0) {
		return degenerateConfig("grouping predicate refers to heavy chain but no heavy chain is present")
	}
	if !lightPresent && (g.CDR3LightLen || g.LightPC > 0 || g.AALightPC > 0 || g.CDR3LightPC > 0 || g.CDR3AALightPC > 0) {
		return degenerateConfig("grouping predicate refers to light chain but no light chain is present")
	}
	if g.AsymmetricDistBound != "" && g.Style != "asymmetric" {
		return degenerateConfig("asymmetric_dist_bound set without clono_group_opt.style = asymmetric")
	}
	return nil
}

func degenerateConfig(msg string) error {
	return cloneerr.DegenerateConfiguration(msg)
}

package main

import (
	"github.com/spf13/cobra"
)

func newAnnotateCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Annotate contigs and build clonotypes without forming groups",
		Long: `annotate runs the full pipeline through joining but skips grouping,
writing one row per clonotype with no group-level summary. It is the
fastest way to sanity-check a reference and an input stream before
asking for grouped output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.groupStyle = "none"
			return o.run(cmd)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
)

func newJoinCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Annotate, filter, and join contigs into clonotypes",
		Long: `join runs the full pipeline through cross-filtering and probabilistic
pairwise joining, writing one row per resulting clonotype. Groups are
not formed unless --group-style selects a grouping style; the group
subcommand requires one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.groupStyle == "" {
				o.groupStyle = "none"
			}
			return o.run(cmd)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

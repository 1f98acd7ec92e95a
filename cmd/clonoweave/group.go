package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGroupCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Run the full pipeline and partition clonotypes into groups",
		Long: `group runs annotation, joining, and grouping, then writes both the
per-clonotype table and (when --group-output is set) a per-group
summary table. --group-style selects symmetric grouping (mutual
percent-identity above a threshold) or asymmetric grouping (nearest
centre by edit distance, bounded by --asymmetric-bound's top/max).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.groupStyle == "" || o.groupStyle == "none" {
				return fmt.Errorf("group requires --group-style=symmetric or --group-style=asymmetric")
			}
			return o.run(cmd)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

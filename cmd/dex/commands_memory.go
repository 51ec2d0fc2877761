package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dexos/dex/pkg/models"
)

func searchEntries(cmd *cobra.Command, a *app, query string, limit int, semantic bool) ([]*models.MemoryEntry, error) {
	if semantic {
		return a.memory.SearchSemantic(cmd.Context(), query, limit)
	}
	return a.memory.Search(cmd.Context(), query, limit)
}

// buildMemoryCmd creates the "dex memory" command group.
func buildMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain semantic memory",
	}
	cmd.AddCommand(buildMemorySearchCmd(), buildMemoryPruneCmd())
	return cmd
}

func buildMemorySearchCmd() *cobra.Command {
	var (
		limit    int
		semantic bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.memory == nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("semantic memory is disabled")}
			}

			entries, err := searchEntries(cmd, a, args[0], limit, semantic)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No memories matched.")
				return nil
			}
			for _, e := range entries {
				if e.Score > 0 {
					fmt.Fprintf(out, "[%.3f] %s  %s\n", e.Score, e.Timestamp.Format("2006-01-02"), e.Content)
				} else {
					fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Format("2006-01-02"), e.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	cmd.Flags().BoolVar(&semantic, "semantic", true, "Rank by embedding similarity when available")
	return cmd
}

func buildMemoryPruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete memories older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.memory == nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("semantic memory is disabled")}
			}
			removed, err := a.memory.PruneOldMemories(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d memories older than %d days.\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Age cutoff in days")
	return cmd
}

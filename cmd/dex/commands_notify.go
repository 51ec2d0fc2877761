package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dexos/dex/pkg/models"
)

// buildNotifyCmd creates the "dex notify" command group.
func buildNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification channel utilities",
	}
	cmd.AddCommand(buildNotifyTestCmd())
	return cmd
}

func buildNotifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification to every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			outcomes := a.dispatcher.Send(cmd.Context(), models.Notification{
				Title:    "Test Notification",
				Message:  "If you can read this, the channel works.",
				Priority: models.PriorityNormal,
				Tag:      "test",
			})

			out := cmd.OutOrStdout()
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No channels are configured.")
				return nil
			}

			names := make([]string, 0, len(outcomes))
			for name := range outcomes {
				names = append(names, name)
			}
			sort.Strings(names)

			failed := 0
			for _, name := range names {
				if err := outcomes[name]; err != nil {
					failed++
					fmt.Fprintf(out, "✗ %-10s %v\n", name, err)
				} else {
					fmt.Fprintf(out, "✓ %-10s delivered\n", name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d channel(s) failed", failed)
			}
			return nil
		},
	}
}

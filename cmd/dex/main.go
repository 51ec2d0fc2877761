// Package main is the dex CLI: a personal task-automation operator that
// plans, risk-gates, executes, and verifies natural-language tasks.
//
// Basic usage:
//
//	dex run "remind me to stretch in 20 minutes"
//	dex status
//	dex serve
//	dex monitor
//
// Configuration comes from environment variables (and an optional .env file
// in the working directory); see `dex doctor` for a checkup.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK         = 0
	exitTaskFailed = 1
	exitConfig     = 2
	exitInterrupt  = 130
)

// exitError carries a specific process exit code up through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := buildRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ec *exitError
	if errors.As(err, &ec) {
		if ec.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", ec.err)
		}
		return ec.code
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return exitInterrupt
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return exitTaskFailed
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dex",
		Short: "Dex - personal AI task operator",
		Long: `Dex turns natural-language requests into risk-gated execution plans and
runs them through a planner, executor, and verifier over a local message bus.

Tools: reminders, notes, files, shell, apps, browser, email, chat.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		// Errors are printed once in run() with the right exit code.
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildStatusCmd(),
		buildInitCmd(),
		buildDoctorCmd(),
		buildServeCmd(),
		buildMonitorCmd(),
		buildBotCmd(),
		buildNotifyCmd(),
		buildMemoryCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "dex %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/pkg/models"
)

// buildRunCmd creates "dex run": one task through the full pipeline.
func buildRunCmd() *cobra.Command {
	var (
		autoYes    bool
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "run <request...>",
		Short: "Plan and execute a natural-language task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			task := models.NewTask(strings.Join(args, " "))

			confirm := func(ctx context.Context, plan *models.ExecutionPlan, assessment *models.RiskAssessment) (bool, error) {
				if autoYes {
					return true, nil
				}
				if jsonOutput {
					// No interactive prompt in JSON mode.
					return false, nil
				}
				printPlan(out, plan, assessment)
				fmt.Fprintf(out, "\nThis plan is %s risk (score %.2f). Execute? [y/N] ",
					assessment.Level, assessment.Score)
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && err != io.EOF {
					return false, err
				}
				answer := strings.ToLower(strings.TrimSpace(line))
				return answer == "y" || answer == "yes", nil
			}

			result, err := a.pipeline.Submit(cmd.Context(), task, confirm)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if result.Cancelled {
				fmt.Fprintln(out, "Cancelled. No steps were executed.")
				return nil
			}
			printResult(out, result.Plan, result.Assessment, result)
			if !result.Verified {
				return &exitError{code: exitTaskFailed, err: fmt.Errorf("task did not verify")}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Skip the confirmation prompt for risky plans")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full result as JSON")
	return cmd
}

// buildStatusCmd creates "dex status": a quick look at local state.
func buildStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Dex online - %s\n\n", time.Now().In(loc).Format("Mon Jan 2 15:04 MST"))
			fmt.Fprintf(out, "Data dir:   %s\n", a.cfg.DataDir)
			fmt.Fprintf(out, "Risk mode:  %s\n", a.risk.Mode())
			fmt.Fprintf(out, "Time zone:  %s\n", a.cfg.TimeZone)
			if a.client != nil {
				fmt.Fprintf(out, "LLM:        %s (%s)\n", a.client.Name(), a.cfg.LLM.ModelName)
			} else {
				fmt.Fprintln(out, "LLM:        not configured (rule-based planning)")
			}

			list, err := a.reminders.Load()
			if err != nil {
				return err
			}
			active := 0
			for _, r := range list {
				if r.IsActive {
					active++
				}
			}
			fmt.Fprintf(out, "Reminders:  %d active / %d total\n", active, len(list))

			if a.memory != nil {
				count, err := a.memory.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Memories:   %d\n", count)
			} else {
				fmt.Fprintln(out, "Memories:   disabled")
			}

			var configured []string
			for _, ch := range a.dispatcher.Channels() {
				if ch.IsConfigured() {
					configured = append(configured, ch.Name())
				}
			}
			if len(configured) == 0 {
				fmt.Fprintln(out, "Notify:     no channels configured")
			} else {
				fmt.Fprintf(out, "Notify:     %s\n", strings.Join(configured, ", "))
			}
			return nil
		},
	}
}

// buildInitCmd creates "dex init": scaffold the data directory and an env
// template.
func buildInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and a .env template",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data directory ready: %s\n", a.cfg.DataDir)

			envPath := ".env"
			if _, err := os.Stat(envPath); err == nil {
				fmt.Fprintf(out, "%s already exists, leaving it alone\n", envPath)
				return nil
			}
			if err := os.WriteFile(envPath, []byte(envTemplate), 0o600); err != nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("write %s: %w", envPath, err)}
			}
			fmt.Fprintf(out, "Wrote %s - fill in your credentials\n", envPath)
			return nil
		},
	}
}

const envTemplate = `# Dex configuration. Real environment variables win over this file.

DEX_RISK_MODE=balanced
DEX_TIME_ZONE=UTC
# DEX_DATA_DIR=.agentic_os
# DEX_HTTP_ADDR=127.0.0.1:8000

# Model backend (optional; rule-based planning without it)
# LLM_PROVIDER=openai
# LLM_MODEL_NAME=gpt-4o-mini
# LLM_API_KEY=

# Notifications (each channel is optional)
# NOTIFY_EMAIL_FROM=
# NOTIFY_SMTP_SERVER=
# NOTIFY_SMTP_PORT=587
# NOTIFY_SMTP_PASSWORD=
# NOTIFY_TWILIO_ACCOUNT_SID=
# NOTIFY_TWILIO_AUTH_TOKEN=
# NOTIFY_TWILIO_FROM_WHATSAPP=
# NOTIFY_USER_WHATSAPP_NUMBER=
# NOTIFY_WEBHOOK_URL=

# Discord bot
# DISCORD_BOT_TOKEN=
# DISCORD_CHANNEL_ID=
`

// buildDoctorCmd creates "dex doctor": a configuration checkup.
func buildDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and local prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			check := func(name string, ok bool, detail string) {
				mark := "✓"
				if !ok {
					mark = "✗"
				}
				fmt.Fprintf(out, "%s %-22s %s\n", mark, name, detail)
			}

			check("config", true, fmt.Sprintf("risk mode %s, tz %s", a.cfg.RiskMode, a.cfg.TimeZone))

			probe := filepath.Join(a.cfg.DataDir, ".doctor")
			writable := os.WriteFile(probe, []byte("ok"), 0o600) == nil
			if writable {
				_ = os.Remove(probe)
			}
			check("data dir", writable, a.cfg.DataDir)

			if a.memory != nil {
				_, memErr := a.memory.Count(cmd.Context())
				check("memory db", memErr == nil, a.cfg.MemoryDBPath())
			} else {
				check("memory db", true, "disabled")
			}

			if a.client != nil {
				check("llm", true, a.client.Name())
			} else {
				check("llm", false, "not configured; planner falls back to rules")
			}

			for _, ch := range a.dispatcher.Channels() {
				detail := "not configured"
				if ch.IsConfigured() {
					detail = "ready"
				}
				check("notify/"+ch.Name(), ch.IsConfigured(), detail)
			}

			check("discord", a.cfg.Discord.BotToken != "", "bot token")
			fmt.Fprintf(out, "\n%d tools registered\n", len(a.registry.Describe()))
			return nil
		},
	}
}

// printPlan renders a plan and its assessment for the terminal.
func printPlan(out io.Writer, plan *models.ExecutionPlan, assessment *models.RiskAssessment) {
	fmt.Fprintf(out, "Plan (%s, confidence %.2f):\n", plan.CreatedBy, plan.Confidence)
	for i, step := range plan.Steps {
		fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, step.Description, step.ToolName)
	}
	if assessment != nil && assessment.Reasoning != "" {
		fmt.Fprintf(out, "Risk: %s\n", assessment.Reasoning)
	}
}

// printResult renders the execution outcome.
func printResult(out io.Writer, plan *models.ExecutionPlan, assessment *models.RiskAssessment, result *pipeline.Result) {
	printPlan(out, plan, assessment)
	fmt.Fprintln(out)

	for _, step := range plan.Steps {
		res, ok := result.Results[step.ID]
		if !ok {
			fmt.Fprintf(out, "  - %s: skipped\n", step.ToolName)
			continue
		}
		if res.Success {
			fmt.Fprintf(out, "  ✓ %s (%dms)\n", step.ToolName, res.DurationMS)
		} else {
			fmt.Fprintf(out, "  ✗ %s: %s\n", step.ToolName, res.Error)
		}
	}

	if result.Verified {
		fmt.Fprintln(out, "\nVerified.")
		return
	}
	fmt.Fprintln(out, "\nVerification failed:")
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	for _, rec := range result.Recommendations {
		fmt.Fprintf(out, "  > %s\n", rec)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dexos/dex/internal/api"
	"github.com/dexos/dex/internal/bot"
	"github.com/dexos/dex/internal/daemon"
)

// buildServeCmd creates "dex serve": the local HTTP dashboard. The reminder
// monitor runs alongside it so a single process covers both.
func buildServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP dashboard and reminder monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			server := api.NewServer(api.Config{
				Pipeline:  a.pipeline,
				Risk:      a.risk,
				State:     a.state,
				Telemetry: a.telemetry,
				Memory:    a.memory,
				Reminders: a.reminders,
				NotesDir:  a.cfg.NotesDir(),
				AppConfig: a.cfg,
				Logger:    a.logger,
				Gatherer:  prometheus.DefaultGatherer,
				StartTime: a.started,
			})

			monitor := daemon.NewMonitor(daemon.Config{
				Store:      a.reminders,
				Dispatcher: a.dispatcher,
				Logger:     a.logger,
				Metrics:    a.metrics,
			})
			go func() { _ = monitor.Run(cmd.Context()) }()

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on http://%s\n", addr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return cmd.Context().Err()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from DEX_HTTP_ADDR)")
	return cmd
}

// buildMonitorCmd creates "dex monitor": the reminder monitor, foreground.
func buildMonitorCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the reminder monitor in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			monitor := daemon.NewMonitor(daemon.Config{
				Store:      a.reminders,
				Dispatcher: a.dispatcher,
				Logger:     a.logger,
				Metrics:    a.metrics,
				Interval:   interval,
			})
			err = monitor.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return err
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", daemon.DefaultCheckInterval, "Check interval")
	return cmd
}

// buildBotCmd creates "dex bot": the Discord gateway.
func buildBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Discord.BotToken == "" {
				return &exitError{code: exitConfig, err: fmt.Errorf("DISCORD_BOT_TOKEN is not set")}
			}

			b, err := bot.New(bot.Config{
				Token:     a.cfg.Discord.BotToken,
				ChannelID: a.cfg.Discord.ChannelID,
				Pipeline:  a.pipeline,
				Risk:      a.risk,
				State:     a.state,
				Memory:    a.memory,
				Logger:    a.logger,
			})
			if err != nil {
				return &exitError{code: exitConfig, err: err}
			}
			return b.Start(cmd.Context())
		},
	}
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dexos/dex/internal/agents/executor"
	"github.com/dexos/dex/internal/agents/planner"
	"github.com/dexos/dex/internal/agents/verifier"
	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/config"
	"github.com/dexos/dex/internal/llm"
	"github.com/dexos/dex/internal/memory"
	"github.com/dexos/dex/internal/notify"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/internal/tools/apps"
	"github.com/dexos/dex/internal/tools/chat"
	"github.com/dexos/dex/internal/tools/email"
	"github.com/dexos/dex/internal/tools/files"
	"github.com/dexos/dex/internal/tools/notes"
	remindertools "github.com/dexos/dex/internal/tools/reminders"
	"github.com/dexos/dex/internal/tools/shell"
)

// app is the assembled runtime: every surface (CLI command, HTTP server,
// Discord bot) works against the same wired core.
type app struct {
	cfg        *config.Config
	logger     *observability.Logger
	bus        *bus.Bus
	registry   *tools.Registry
	risk       *risk.Engine
	state      *state.Manager
	memory     *memory.Store
	telemetry  *observability.Telemetry
	metrics    *observability.Metrics
	dispatcher *notify.Dispatcher
	pipeline   *pipeline.Pipeline
	reminders  *reminders.Store
	client     llm.Client
	emailCh    *notify.Email
	started    time.Time
}

// buildApp loads configuration and wires the coordination core. Failures
// here are configuration or init failures (exit code 2).
func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}
	if _, err := cfg.EnsureDataDir(); err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	telemetry := observability.NewTelemetry(cfg.DataDir, metrics)

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, &exitError{code: exitConfig, err: err}
	}

	var store *memory.Store
	if !cfg.DisableSemanticMemory {
		var embedder memory.Embedder
		if strings.EqualFold(cfg.LLM.Provider, "openai") && cfg.LLM.APIKey != "" {
			embedder, err = memory.NewOpenAIEmbedder(memory.EmbedderConfig{
				APIKey:  cfg.LLM.APIKey,
				BaseURL: cfg.LLM.BaseURL,
			})
			if err != nil {
				return nil, &exitError{code: exitConfig, err: err}
			}
		}
		store, err = memory.NewStore(memory.Config{
			Path:     cfg.MemoryDBPath(),
			Embedder: embedder,
			Logger:   logger,
		})
		if err != nil {
			return nil, &exitError{code: exitConfig, err: fmt.Errorf("open memory store: %w", err)}
		}
	}

	emailCh := notify.NewEmail(cfg.Notify)
	dispatcher := notify.NewDispatcher(logger,
		notify.NewDesktop(),
		emailCh,
		notify.NewWhatsApp(cfg.Notify),
		notify.NewSlack(cfg.Notify.WebhookURL),
	)

	remStore := reminders.NewStore(cfg.RemindersPath())

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		remindertools.NewSetTool(remStore, loc),
		remindertools.NewListTool(remStore),
		notes.NewCreateTool(cfg.NotesDir()),
		notes.NewListTool(cfg.NotesDir()),
		files.NewReadTool(),
		files.NewWriteTool(),
		shell.NewCommandTool(),
		apps.NewLaunchTool(),
		apps.NewBrowserTool(),
		email.NewComposeTool(emailCh),
		chat.NewTool(client),
	} {
		if err := registry.Register(tool); err != nil {
			return nil, &exitError{code: exitConfig, err: err}
		}
	}

	engine := risk.NewEngine(cfg.RiskMode)
	b := bus.New(bus.Config{})
	stateMgr := state.NewManager()

	// AGENT_SELF_CORRECTION_ATTEMPTS=0 means no retries, which the executor
	// spells as a negative value.
	retries := cfg.Agent.SelfCorrectionAttempts
	if retries == 0 {
		retries = -1
	}

	planner.New(planner.Config{
		Bus:       b,
		Registry:  registry,
		Risk:      engine,
		Memory:    store,
		Client:    client,
		Telemetry: telemetry,
		Logger:    logger,
		Location:  loc,
	}).Register()
	executor.New(executor.Config{
		Bus:       b,
		Registry:  registry,
		State:     stateMgr,
		Telemetry: telemetry,
		Logger:    logger,
		Retries:   retries,
	}).Register()
	verifier.New(verifier.Config{Bus: b, Logger: logger}).Register()

	return &app{
		cfg:        cfg,
		logger:     logger,
		bus:        b,
		registry:   registry,
		risk:       engine,
		state:      stateMgr,
		memory:     store,
		telemetry:  telemetry,
		metrics:    metrics,
		dispatcher: dispatcher,
		reminders:  remStore,
		client:     client,
		emailCh:    emailCh,
		started:    time.Now(),
		pipeline: pipeline.New(pipeline.Config{
			Bus:     b,
			Risk:    engine,
			Logger:  logger,
			Timeout: cfg.Agent.RequestTimeout,
			Sender:  "cli",
		}),
	}, nil
}

func (a *app) Close() {
	a.bus.Shutdown()
	if a.memory != nil {
		_ = a.memory.Close()
	}
}

// Package api serves the read-mostly JSON dashboard: telemetry, system
// state, memory search, reminders, notes, and a single task-submission
// endpoint. It is meant for a local dashboard, not the public internet.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dexos/dex/internal/config"
	"github.com/dexos/dex/internal/memory"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/internal/reminders"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/internal/tools/notes"
	"github.com/dexos/dex/pkg/models"
)

// Config wires the dashboard server. Memory, Telemetry, and Gatherer may be
// nil; their endpoints then degrade gracefully.
type Config struct {
	Pipeline  *pipeline.Pipeline
	Risk      *risk.Engine
	State     *state.Manager
	Telemetry *observability.Telemetry
	Memory    *memory.Store
	Reminders *reminders.Store
	NotesDir  string
	AppConfig *config.Config
	Logger    *observability.Logger
	Gatherer  prometheus.Gatherer
	StartTime time.Time
}

// Server is the dashboard HTTP handler.
type Server struct {
	cfg   Config
	mux   *http.ServeMux
	notes *notes.ListTool
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	s := &Server{
		cfg:   cfg,
		mux:   http.NewServeMux(),
		notes: notes.NewListTool(cfg.NotesDir),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))

	s.mux.HandleFunc("/api/telemetry/summary", s.handleTelemetrySummary)
	s.mux.HandleFunc("/api/state/system", s.handleSystemState)
	s.mux.HandleFunc("/api/tasks/active", s.handleActiveTasks)
	s.mux.HandleFunc("/api/tasks", s.handleTasks)
	s.mux.HandleFunc("/api/memory/search", s.handleMemorySearch)
	s.mux.HandleFunc("/api/reminders", s.handleReminders)
	s.mux.HandleFunc("/api/notes", s.handleNotes)
	s.mux.HandleFunc("/api/config", s.handleConfig)
}

// ServeHTTP applies CORS and request logging around the route table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	start := time.Now()
	wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(wrapped, r)

	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "online",
		"agent":  "Dex",
		"uptime": time.Since(s.cfg.StartTime).Round(time.Second).String(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTelemetrySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Telemetry == nil {
		s.writeJSON(w, http.StatusOK, &observability.TelemetrySummary{})
		return
	}
	summary, err := s.cfg.Telemetry.Summary()
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// SystemState is the aggregate health view served at /api/state/system.
type SystemState struct {
	Uptime        string          `json:"uptime"`
	GoVersion     string          `json:"go_version"`
	NumGoroutines int             `json:"num_goroutines"`
	NumCPU        int             `json:"num_cpu"`
	MemAllocMB    float64         `json:"mem_alloc_mb"`
	RiskMode      models.RiskMode `json:"risk_mode"`
	ActiveTasks   int             `json:"active_tasks"`
	MemoryCount   int64           `json:"memory_count"`
	DataDir       string          `json:"data_dir"`
}

func (s *Server) handleSystemState(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := SystemState{
		Uptime:        time.Since(s.cfg.StartTime).Round(time.Second).String(),
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemAllocMB:    float64(mem.Alloc) / 1024 / 1024,
	}
	if s.cfg.Risk != nil {
		st.RiskMode = s.cfg.Risk.Mode()
	}
	if s.cfg.State != nil {
		st.ActiveTasks = len(s.cfg.State.GetActiveTasks())
	}
	if s.cfg.Memory != nil {
		if count, err := s.cfg.Memory.Count(r.Context()); err == nil {
			st.MemoryCount = count
		}
	}
	if s.cfg.AppConfig != nil {
		st.DataDir = s.cfg.AppConfig.DataDir
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleActiveTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	traces := []*models.ExecutionTrace{}
	if s.cfg.State != nil {
		for _, taskID := range s.cfg.State.GetActiveTasks() {
			trace, err := s.cfg.State.GetExecutionState(taskID)
			if err != nil {
				continue
			}
			traces = append(traces, trace)
		}
	}
	s.writeJSON(w, http.StatusOK, traces)
}

type submitRequest struct {
	Request string `json:"request"`
}

// handleTasks accepts POST {"request": "..."} and runs the full pipeline.
// This surface has no interactive confirmation, so plans the risk mode
// gates are rejected with 409 and the assessment rather than executed.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.Pipeline == nil {
		s.jsonError(w, "task submission disabled", http.StatusServiceUnavailable)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Request = strings.TrimSpace(req.Request)
	if req.Request == "" {
		s.jsonError(w, "request text is required", http.StatusBadRequest)
		return
	}

	task := models.NewTask(req.Request)
	plan, assessment, err := s.cfg.Pipeline.Plan(r.Context(), task)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrPlanningFailed) {
			status = http.StatusUnprocessableEntity
		}
		s.jsonError(w, err.Error(), status)
		return
	}
	if s.cfg.Pipeline.RequiresConfirmation(assessment) {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "plan requires confirmation; use an interactive surface",
			"task_id":    task.ID,
			"assessment": assessment,
			"plan":       plan,
		})
		return
	}

	result, err := s.cfg.Pipeline.Execute(r.Context(), task, plan)
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"task_id":         task.ID,
		"verified":        result.Verified,
		"issues":          result.Issues,
		"recommendations": result.Recommendations,
		"results":         result.Results,
		"assessment":      assessment,
	})
}

func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.jsonError(w, "q parameter is required", http.StatusBadRequest)
		return
	}
	if s.cfg.Memory == nil {
		s.writeJSON(w, http.StatusOK, []*models.MemoryEntry{})
		return
	}
	semantic := true
	if raw := r.URL.Query().Get("semantic"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			semantic = parsed
		}
	}

	var (
		entries []*models.MemoryEntry
		err     error
	)
	if semantic {
		entries, err = s.cfg.Memory.SearchSemantic(r.Context(), query, 10)
	} else {
		entries, err = s.cfg.Memory.Search(r.Context(), query, 10)
	}
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.MemoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list := []*models.Reminder{}
	if s.cfg.Reminders != nil {
		sorted, err := s.cfg.Reminders.Sorted()
		if err != nil {
			s.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if sorted != nil {
			list = sorted
		}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	params, _ := json.Marshal(map[string]string{
		"search_term": r.URL.Query().Get("q"),
	})
	result, err := s.notes.Execute(r.Context(), params)
	if err != nil || !result.Success {
		s.jsonError(w, "note listing failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, result.Data)
}

// handleConfig serves the active configuration with secrets replaced by a
// set/unset marker.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.AppConfig
	if cfg == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data_dir":  cfg.DataDir,
		"time_zone": cfg.TimeZone,
		"risk_mode": cfg.RiskMode,
		"http_addr": cfg.HTTPAddr,
		"llm": map[string]any{
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.ModelName,
			"api_key":  redact(cfg.LLM.APIKey),
		},
		"notify": map[string]any{
			"email_from":    cfg.Notify.EmailFrom,
			"smtp_server":   cfg.Notify.SMTPServer,
			"smtp_password": redact(cfg.Notify.SMTPPassword),
			"twilio_sid":    redact(cfg.Notify.TwilioAccountSID),
			"twilio_token":  redact(cfg.Notify.TwilioAuthToken),
			"webhook_url":   redact(cfg.Notify.WebhookURL),
		},
		"discord": map[string]any{
			"bot_token":  redact(cfg.Discord.BotToken),
			"channel_id": cfg.Discord.ChannelID,
		},
	})
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.cfg.Logger != nil {
		s.cfg.Logger.Error(context.Background(), "encode response failed", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, msg string, status int) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

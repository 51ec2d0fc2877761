package pipeline

import (
	"context"
	"errors"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/dexos/dex/internal/agents/executor"
	"github.com/dexos/dex/internal/agents/planner"
	"github.com/dexos/dex/internal/agents/verifier"
	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/internal/tools/chat"
	"github.com/dexos/dex/internal/tools/shell"
	"github.com/dexos/dex/pkg/models"
)

// newSystem wires a complete in-process coordination core: bus, the three
// agents, a registry with real tools, and the pipeline under test.
func newSystem(t *testing.T, mode models.RiskMode) *Pipeline {
	t.Helper()

	logger := observability.NewLogger(observability.LogConfig{Output: io.Discard})
	b := bus.New(bus.Config{})
	t.Cleanup(b.Shutdown)

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{chat.NewTool(nil), shell.NewCommandTool()} {
		if err := registry.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	engine := risk.NewEngine(mode)

	planner.New(planner.Config{
		Bus:      b,
		Registry: registry,
		Risk:     engine,
		Logger:   logger,
		Location: time.UTC,
	}).Register()
	executor.New(executor.Config{
		Bus:      b,
		Registry: registry,
		State:    state.NewManager(),
		Logger:   logger,
	}).Register()
	verifier.New(verifier.Config{Bus: b, Logger: logger}).Register()

	return New(Config{
		Bus:     b,
		Risk:    engine,
		Logger:  logger,
		Timeout: 5 * time.Second,
		Sender:  "test",
	})
}

func TestPipeline_SubmitLowRiskTask(t *testing.T) {
	p := newSystem(t, models.RiskModeBalanced)

	task := models.NewTask("tell me a joke")
	result, err := p.Submit(context.Background(), task, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Cancelled {
		t.Fatal("low-risk task hit the confirmation gate")
	}
	if !result.Verified {
		t.Errorf("Verified = false, issues = %v", result.Issues)
	}
	if result.Assessment == nil || result.Assessment.Level != models.RiskLow {
		t.Errorf("assessment = %+v, want low", result.Assessment)
	}
	if len(result.Results) != 1 {
		t.Errorf("results = %v, want one step", result.Results)
	}
	if result.Trace == nil || len(result.Trace.Steps) != 1 {
		t.Errorf("trace = %+v", result.Trace)
	}
}

func TestPipeline_HighRiskRequiresConfirmation(t *testing.T) {
	p := newSystem(t, models.RiskModeBalanced)
	task := models.NewTask("list the files in /tmp")

	t.Run("nil confirm cancels", func(t *testing.T) {
		result, err := p.Submit(context.Background(), task, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Cancelled {
			t.Fatal("high-risk task ran without confirmation")
		}
		if result.Assessment.Level != models.RiskHigh {
			t.Errorf("level = %v, want high", result.Assessment.Level)
		}
		if result.Plan == nil {
			t.Error("cancelled result should still carry the plan")
		}
	})

	t.Run("decline cancels", func(t *testing.T) {
		decline := func(ctx context.Context, plan *models.ExecutionPlan, a *models.RiskAssessment) (bool, error) {
			return false, nil
		}
		result, err := p.Submit(context.Background(), models.NewTask("list files in /tmp"), decline)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Cancelled {
			t.Error("declined task was executed")
		}
	})

	t.Run("approval executes", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("unix shell listing")
		}
		approve := func(ctx context.Context, plan *models.ExecutionPlan, a *models.RiskAssessment) (bool, error) {
			return true, nil
		}
		result, err := p.Submit(context.Background(), models.NewTask("list files in /tmp"), approve)
		if err != nil {
			t.Fatal(err)
		}
		if result.Cancelled {
			t.Fatal("approved task was cancelled")
		}
		if !result.Verified {
			t.Errorf("Verified = false, issues = %v", result.Issues)
		}
	})
}

func TestPipeline_PermissiveSkipsConfirmation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell listing")
	}
	p := newSystem(t, models.RiskModePermissive)

	// Score 0.9 is below the permissive 0.95 gate.
	result, err := p.Submit(context.Background(), models.NewTask("list files in /tmp"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Cancelled {
		t.Error("permissive mode should not gate a 0.9 plan")
	}
}

func TestPipeline_PlanningFailureSurfaces(t *testing.T) {
	logger := observability.NewLogger(observability.LogConfig{Output: io.Discard})
	b := bus.New(bus.Config{})
	t.Cleanup(b.Shutdown)

	// A planner with no registered tools still plans; break it by sending
	// a request the handler rejects.
	planner.New(planner.Config{
		Bus:      b,
		Risk:     risk.NewEngine(models.RiskModeBalanced),
		Logger:   logger,
		Location: time.UTC,
	}).Register()

	p := New(Config{
		Bus:     b,
		Risk:    risk.NewEngine(models.RiskModeBalanced),
		Logger:  logger,
		Timeout: 2 * time.Second,
	})

	task := &models.TaskDefinition{ID: "t1"} // empty user request
	_, _, err := p.Plan(context.Background(), task)
	if !errors.Is(err, ErrPlanningFailed) {
		t.Errorf("err = %v, want ErrPlanningFailed", err)
	}
}

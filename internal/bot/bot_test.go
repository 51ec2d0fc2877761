package bot

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dexos/dex/internal/agents/executor"
	"github.com/dexos/dex/internal/agents/planner"
	"github.com/dexos/dex/internal/agents/verifier"
	"github.com/dexos/dex/internal/bus"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/internal/tools"
	"github.com/dexos/dex/internal/tools/chat"
	"github.com/dexos/dex/internal/tools/shell"
	"github.com/dexos/dex/pkg/models"
)

type fakeSession struct {
	mu        sync.Mutex
	sends     []*discordgo.MessageSend
	responses []*discordgo.InteractionResponse
}

func (s *fakeSession) Open() error  { return nil }
func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) AddHandler(handler interface{}) func() { return func() {} }

func (s *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, data)
	return &discordgo.Message{}, nil
}

func (s *fakeSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeSession) lastSend(t *testing.T) *discordgo.MessageSend {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sends) == 0 {
		t.Fatal("no messages sent")
	}
	return s.sends[len(s.sends)-1]
}

func (s *fakeSession) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func newTestBot(t *testing.T, mode models.RiskMode, confirmTimeout time.Duration) (*Bot, *fakeSession, *risk.Engine) {
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

	p := pipeline.New(pipeline.Config{
		Bus:     b,
		Risk:    engine,
		Logger:  logger,
		Timeout: 5 * time.Second,
		Sender:  "discord",
	})

	bot, err := New(Config{
		Token:          "test-token",
		ChannelID:      "console",
		Pipeline:       p,
		Risk:           engine,
		State:          state.NewManager(),
		Logger:         logger,
		ConfirmTimeout: confirmTimeout,
	})
	if err != nil {
		t.Fatal(err)
	}
	session := &fakeSession{}
	bot.session = session
	return bot, session, engine
}

func userMessage(channelID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: "user", Bot: false},
	}}
}

func buttonPress(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func confirmCustomID(t *testing.T, send *discordgo.MessageSend) string {
	t.Helper()
	if len(send.Components) == 0 {
		t.Fatal("no component row on confirmation prompt")
	}
	row, ok := send.Components[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("component = %T, want ActionsRow", send.Components[0])
	}
	button, ok := row.Components[0].(discordgo.Button)
	if !ok {
		t.Fatalf("component = %T, want Button", row.Components[0])
	}
	return button.CustomID
}

func TestBot_HelpCommand(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, 0)

	bot.handleMessageCreate(nil, userMessage("console", "!dex help"))
	embed := session.lastSend(t).Embed
	if embed == nil || embed.Title != "Dex • Help" {
		t.Errorf("embed = %+v", embed)
	}
}

func TestBot_IgnoresOtherChannelsAndBots(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, 0)

	bot.handleMessageCreate(nil, userMessage("random", "!dex help"))
	botMsg := userMessage("console", "!dex help")
	botMsg.Author.Bot = true
	bot.handleMessageCreate(nil, botMsg)
	bot.handleMessageCreate(nil, userMessage("console", "just chatting"))

	if session.sendCount() != 0 {
		t.Errorf("sends = %d, want 0", session.sendCount())
	}
}

func TestBot_RunLowRiskTask(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, 0)

	bot.handleMessageCreate(nil, userMessage("console", "!dex run tell me a joke"))
	embed := session.lastSend(t).Embed
	if embed == nil || embed.Title != "Dex • Task Complete" {
		t.Fatalf("embed = %+v", embed)
	}
	if embed.Color != colorLow {
		t.Errorf("color = %#x, want verified green", embed.Color)
	}
}

func TestBot_HighRiskConfirmFlow(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, time.Minute)

	bot.handleMessageCreate(nil, userMessage("console", "!dex run list the files in /tmp"))
	prompt := session.lastSend(t)
	if prompt.Embed == nil || prompt.Embed.Title != "Dex • Confirmation Required" {
		t.Fatalf("embed = %+v", prompt.Embed)
	}

	customID := confirmCustomID(t, prompt)
	if !strings.HasPrefix(customID, "confirm:") {
		t.Fatalf("customID = %s", customID)
	}

	bot.handleInteractionCreate(nil, buttonPress(customID))
	final := session.lastSend(t).Embed
	if final == nil || final.Title != "Dex • Task Complete" {
		t.Errorf("embed = %+v", final)
	}

	bot.mu.Lock()
	remaining := len(bot.pending)
	bot.mu.Unlock()
	if remaining != 0 {
		t.Errorf("pending = %d, want 0", remaining)
	}
}

func TestBot_HighRiskCancel(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, time.Minute)

	bot.handleMessageCreate(nil, userMessage("console", "!dex run list the files in /tmp"))
	customID := confirmCustomID(t, session.lastSend(t))
	taskID := strings.TrimPrefix(customID, "confirm:")

	before := session.sendCount()
	bot.handleInteractionCreate(nil, buttonPress("cancel:"+taskID))

	if session.sendCount() != before {
		t.Error("cancel should not execute or post a verdict")
	}
	session.mu.Lock()
	resp := session.responses[len(session.responses)-1]
	session.mu.Unlock()
	if !strings.Contains(resp.Data.Content, "cancelled") {
		t.Errorf("response = %q", resp.Data.Content)
	}
}

func TestBot_ConfirmationTimeout(t *testing.T) {
	bot, session, _ := newTestBot(t, models.RiskModeBalanced, 30*time.Millisecond)

	bot.handleMessageCreate(nil, userMessage("console", "!dex run list the files in /tmp"))

	deadline := time.After(2 * time.Second)
	for {
		embed := session.lastSend(t).Embed
		if embed != nil && embed.Title == "Dex • Cancelled" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout notice never arrived")
		case <-time.After(10 * time.Millisecond):
		}
	}

	bot.mu.Lock()
	remaining := len(bot.pending)
	bot.mu.Unlock()
	if remaining != 0 {
		t.Errorf("pending = %d, want 0", remaining)
	}
}

func TestBot_ModeCommand(t *testing.T) {
	bot, session, engine := newTestBot(t, models.RiskModeBalanced, 0)

	bot.handleMessageCreate(nil, userMessage("console", "!dex mode strict"))
	if engine.Mode() != models.RiskModeStrict {
		t.Errorf("mode = %s, want strict", engine.Mode())
	}

	bot.handleMessageCreate(nil, userMessage("console", "!dex mode reckless"))
	embed := session.lastSend(t).Embed
	if embed == nil || embed.Title != "Dex • Invalid mode" {
		t.Errorf("embed = %+v", embed)
	}
	if engine.Mode() != models.RiskModeStrict {
		t.Errorf("mode changed to %s after invalid input", engine.Mode())
	}
}

// Package bot is the Discord surface: text commands in a designated console
// channel, embeds for plans and verdicts, and confirm/cancel buttons that
// gate high-risk execution.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dexos/dex/internal/memory"
	"github.com/dexos/dex/internal/observability"
	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/internal/risk"
	"github.com/dexos/dex/internal/state"
	"github.com/dexos/dex/pkg/models"
)

// CommandPrefix starts every bot command.
const CommandPrefix = "!dex"

// DefaultConfirmTimeout bounds how long a high-risk plan waits for a button.
const DefaultConfirmTimeout = 60 * time.Second

// session is the slice of discordgo.Session the bot needs. Tests substitute
// a fake.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Config wires the bot. ChannelID restricts commands to one console channel;
// empty accepts any channel. Memory may be nil.
type Config struct {
	Token          string
	ChannelID      string
	Pipeline       *pipeline.Pipeline
	Risk           *risk.Engine
	State          *state.Manager
	Memory         *memory.Store
	Logger         *observability.Logger
	ConfirmTimeout time.Duration
}

// pendingPlan is a high-risk plan parked until a button resolves it.
type pendingPlan struct {
	task      *models.TaskDefinition
	plan      *models.ExecutionPlan
	assess    *models.RiskAssessment
	channelID string
	timer     *time.Timer
}

// Bot runs the Discord gateway.
type Bot struct {
	cfg     Config
	session session
	logger  *observability.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPlan
}

// New creates the bot. The gateway session is dialed in Start.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot: token is required")
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("bot: pipeline is required")
	}
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	return &Bot{
		cfg:     cfg,
		logger:  cfg.Logger,
		timeout: timeout,
		pending: make(map[string]*pendingPlan),
	}, nil
}

// Start opens the gateway connection and blocks until the context ends.
func (b *Bot) Start(ctx context.Context) error {
	if b.session == nil {
		dg, err := discordgo.New("Bot " + b.cfg.Token)
		if err != nil {
			return fmt.Errorf("create discord session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
		b.session = dg
	}

	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.logger.Info(ctx, "discord bot connected", "channel_id", b.cfg.ChannelID)

	<-ctx.Done()
	b.logger.Info(ctx, "discord bot stopping")
	return b.session.Close()
}

// handleMessageCreate routes console-channel commands.
func (b *Bot) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if b.cfg.ChannelID != "" && m.ChannelID != b.cfg.ChannelID {
		return
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, CommandPrefix) {
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, CommandPrefix))
	cmd, args, _ := strings.Cut(rest, " ")
	args = strings.TrimSpace(args)

	ctx := context.Background()
	switch cmd {
	case "run":
		b.commandRun(ctx, m.ChannelID, args)
	case "status":
		b.commandStatus(m.ChannelID)
	case "mode":
		b.commandMode(ctx, m.ChannelID, args)
	case "memory":
		b.commandMemory(ctx, m.ChannelID, args)
	case "help", "":
		b.commandHelp(m.ChannelID)
	default:
		b.sendEmbed(m.ChannelID, errorEmbed("Unknown command",
			fmt.Sprintf("`%s %s` is not a command. Try `%s help`.", CommandPrefix, cmd, CommandPrefix)))
	}
}

func (b *Bot) commandHelp(channelID string) {
	b.sendEmbed(channelID, helpEmbed())
}

func (b *Bot) commandStatus(channelID string) {
	active := 0
	if b.cfg.State != nil {
		active = len(b.cfg.State.GetActiveTasks())
	}
	mode := models.RiskModeBalanced
	if b.cfg.Risk != nil {
		mode = b.cfg.Risk.Mode()
	}
	b.sendEmbed(channelID, statusEmbed(mode, active))
}

func (b *Bot) commandMode(ctx context.Context, channelID, arg string) {
	if b.cfg.Risk == nil {
		b.sendEmbed(channelID, errorEmbed("Mode unavailable", "No risk engine is wired."))
		return
	}
	mode := models.RiskMode(strings.ToLower(strings.TrimSpace(arg)))
	if err := b.cfg.Risk.SetMode(mode); err != nil {
		b.sendEmbed(channelID, errorEmbed("Invalid mode",
			"Mode must be one of strict, balanced, permissive."))
		return
	}
	if b.cfg.Memory != nil {
		if err := b.cfg.Memory.SetContext(ctx, "mode", string(mode)); err != nil {
			b.logger.Warn(ctx, "persisting mode failed", "error", err)
		}
	}
	b.sendEmbed(channelID, infoEmbed("Mode updated", fmt.Sprintf("Active mode set to `%s`.", mode)))
}

func (b *Bot) commandMemory(ctx context.Context, channelID, args string) {
	sub, query, _ := strings.Cut(args, " ")
	query = strings.TrimSpace(query)
	if sub != "search" || query == "" {
		b.sendEmbed(channelID, errorEmbed("Usage", fmt.Sprintf("`%s memory search <query>`", CommandPrefix)))
		return
	}
	if b.cfg.Memory == nil {
		b.sendEmbed(channelID, errorEmbed("Memory unavailable", "No memory store is wired."))
		return
	}
	entries, err := b.cfg.Memory.SearchSemantic(ctx, query, 5)
	if err != nil {
		b.sendEmbed(channelID, errorEmbed("Search failed", err.Error()))
		return
	}
	b.sendEmbed(channelID, memoryEmbed(query, entries))
}

func (b *Bot) commandRun(ctx context.Context, channelID, request string) {
	if request == "" {
		b.sendEmbed(channelID, errorEmbed("Usage", fmt.Sprintf("`%s run <task description>`", CommandPrefix)))
		return
	}

	task := models.NewTask(request)
	plan, assessment, err := b.cfg.Pipeline.Plan(ctx, task)
	if err != nil {
		b.sendEmbed(channelID, errorEmbed("Planning failed", err.Error()))
		return
	}

	if b.cfg.Pipeline.RequiresConfirmation(assessment) {
		b.parkForConfirmation(task, plan, assessment, channelID)
		return
	}

	b.execute(ctx, channelID, task, plan, assessment)
}

// parkForConfirmation posts the plan with confirm/cancel buttons and holds
// execution until a button or the timeout resolves it.
func (b *Bot) parkForConfirmation(task *models.TaskDefinition, plan *models.ExecutionPlan, assessment *models.RiskAssessment, channelID string) {
	p := &pendingPlan{task: task, plan: plan, assess: assessment, channelID: channelID}
	p.timer = time.AfterFunc(b.timeout, func() { b.expirePending(task.ID) })

	b.mu.Lock()
	b.pending[task.ID] = p
	b.mu.Unlock()

	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embed: confirmEmbed(plan, assessment),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Confirm Execution",
						Style:    discordgo.SuccessButton,
						CustomID: "confirm:" + task.ID,
					},
					discordgo.Button{
						Label:    "Cancel",
						Style:    discordgo.DangerButton,
						CustomID: "cancel:" + task.ID,
					},
				},
			},
		},
	})
	if err != nil {
		b.logger.Error(context.Background(), "confirmation prompt failed", "error", err)
		b.takePending(task.ID)
	}
}

func (b *Bot) expirePending(taskID string) {
	if p := b.takePending(taskID); p != nil {
		b.sendEmbed(p.channelID, infoEmbed("Cancelled",
			"Confirmation timed out. The task was not executed."))
	}
}

// takePending removes and returns the pending plan, stopping its timer.
func (b *Bot) takePending(taskID string) *pendingPlan {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[taskID]
	if !ok {
		return nil
	}
	delete(b.pending, taskID)
	p.timer.Stop()
	return p
}

// handleInteractionCreate resolves confirm/cancel button presses.
func (b *Bot) handleInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	action, taskID, ok := strings.Cut(i.MessageComponentData().CustomID, ":")
	if !ok {
		return
	}

	p := b.takePending(taskID)
	if p == nil {
		b.respondUpdate(i.Interaction, "This confirmation has expired.")
		return
	}

	switch action {
	case "confirm":
		b.respondUpdate(i.Interaction, "✅ Execution confirmed. Processing...")
		b.execute(context.Background(), p.channelID, p.task, p.plan, p.assess)
	case "cancel":
		b.respondUpdate(i.Interaction, "❌ Execution cancelled.")
	}
}

func (b *Bot) execute(ctx context.Context, channelID string, task *models.TaskDefinition, plan *models.ExecutionPlan, assessment *models.RiskAssessment) {
	result, err := b.cfg.Pipeline.Execute(ctx, task, plan)
	if err != nil {
		b.sendEmbed(channelID, errorEmbed("Execution failed", err.Error()))
		return
	}
	b.sendEmbed(channelID, verdictEmbed(plan, assessment, result))
}

func (b *Bot) respondUpdate(i *discordgo.Interaction, content string) {
	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		b.logger.Error(context.Background(), "interaction response failed", "error", err)
	}
}

func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Embed: embed})
	if err != nil {
		b.logger.Error(context.Background(), "send embed failed", "channel_id", channelID, "error", err)
	}
}

package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/dexos/dex/internal/pipeline"
	"github.com/dexos/dex/pkg/models"
)

const (
	colorHigh   = 0xFF3B30
	colorMedium = 0xFF9F0A
	colorLow    = 0x34C759
	colorInfo   = 0x439FE0
)

func riskColor(level models.RiskLevel) int {
	switch level {
	case models.RiskHigh:
		return colorHigh
	case models.RiskMedium:
		return colorMedium
	default:
		return colorLow
	}
}

func planLines(plan *models.ExecutionPlan) string {
	if plan == nil || len(plan.Steps) == 0 {
		return "None"
	}
	var sb strings.Builder
	for i, step := range plan.Steps {
		fmt.Fprintf(&sb, "%d. %s (`%s`)\n", i+1, step.Description, step.ToolName)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func toolsUsed(plan *models.ExecutionPlan) string {
	if plan == nil || len(plan.Steps) == 0 {
		return "None"
	}
	seen := map[string]bool{}
	var names []string
	for _, step := range plan.Steps {
		if !seen[step.ToolName] {
			seen[step.ToolName] = true
			names = append(names, step.ToolName)
		}
	}
	return strings.Join(names, ", ")
}

func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Dex • Help",
		Color: colorInfo,
		Description: strings.Join([]string{
			fmt.Sprintf("`%s run <task>` - plan and execute a task", CommandPrefix),
			fmt.Sprintf("`%s status` - gateway status and active tasks", CommandPrefix),
			fmt.Sprintf("`%s mode <strict|balanced|permissive>` - set the risk mode", CommandPrefix),
			fmt.Sprintf("`%s memory search <query>` - search semantic memory", CommandPrefix),
			fmt.Sprintf("`%s help` - this message", CommandPrefix),
		}, "\n"),
	}
}

func statusEmbed(mode models.RiskMode, activeTasks int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Dex • Status",
		Description: "Dex Discord gateway is online.",
		Color:       colorLow,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Risk Mode", Value: string(mode), Inline: true},
			{Name: "Active Tasks", Value: fmt.Sprintf("%d", activeTasks), Inline: true},
		},
	}
}

func infoEmbed(title, summary string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Dex • " + title, Description: summary, Color: colorInfo}
}

func errorEmbed(title, summary string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Dex • " + title, Description: summary, Color: colorHigh}
}

func memoryEmbed(query string, entries []*models.MemoryEntry) *discordgo.MessageEmbed {
	description := "No memories matched."
	if len(entries) > 0 {
		var sb strings.Builder
		for _, e := range entries {
			content := e.Content
			if len(content) > 160 {
				content = content[:157] + "..."
			}
			fmt.Fprintf(&sb, "• %s\n", content)
		}
		description = strings.TrimRight(sb.String(), "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "Dex • Memory: " + query,
		Description: description,
		Color:       colorInfo,
	}
}

func confirmEmbed(plan *models.ExecutionPlan, assessment *models.RiskAssessment) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Dex • Confirmation Required",
		Description: "This task requires high-risk operations. Please confirm execution.",
		Color:       riskColor(assessment.Level),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Risk Level", Value: strings.ToUpper(string(assessment.Level)), Inline: true},
			{Name: "Score", Value: fmt.Sprintf("%.2f", assessment.Score), Inline: true},
			{Name: "Execution Plan", Value: planLines(plan), Inline: false},
		},
	}
}

func verdictEmbed(plan *models.ExecutionPlan, assessment *models.RiskAssessment, result *pipeline.Result) *discordgo.MessageEmbed {
	status := "verified"
	color := colorLow
	if !result.Verified {
		status = "failed"
		color = colorHigh
	}
	level := models.RiskLow
	if assessment != nil {
		level = assessment.Level
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Dex • Task Complete",
		Description: fmt.Sprintf("Execution %s.", status),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Risk Level", Value: strings.ToUpper(string(level)), Inline: true},
			{Name: "Execution Plan", Value: planLines(plan), Inline: false},
			{Name: "Tools Used", Value: toolsUsed(plan), Inline: false},
			{Name: "Verification Status", Value: status, Inline: true},
		},
	}
	if len(result.Issues) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Issues",
			Value:  strings.Join(result.Issues, "\n"),
			Inline: false,
		})
	}
	return embed
}

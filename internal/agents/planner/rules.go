package planner

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"github.com/dexos/dex/internal/tools/apps"
	"github.com/dexos/dex/pkg/models"
	"github.com/google/uuid"
)

// Deterministic routing: lowercase substring match against the user request,
// most specific intent first. Every branch yields a plan with at least one
// step and confidence in [0.5, 0.95].

var (
	relativeTimeRe = regexp.MustCompile(`(?i)\bin\s+(\d+)\s*(minute|hour|day)s?\b`)
	clockTimeRe    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	tomorrowRe     = regexp.MustCompile(`(?i)\btomorrow\b`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	pathRe         = regexp.MustCompile(`[A-Za-z]:[\\/]\S+|/\S+|\./\S+|\b[\w-]+\.[A-Za-z0-9]{1,5}\b`)
	dirRe          = regexp.MustCompile(`[A-Za-z]:[\\/]\S*|/\S*|\./\S*`)
)

func (a *Agent) planWithRules(task *models.TaskDefinition) *models.ExecutionPlan {
	request := strings.ToLower(strings.TrimSpace(task.UserRequest))

	switch {
	case containsAny(request, "note", "notes") ||
		(containsAny(request, "save", "remember") && !containsAny(request, "file", "reminder")):
		return a.planNotes(task, request)

	case containsAny(request, "remind", "reminder", "alarm", "schedule"):
		return a.planReminder(task, request)

	case containsAny(request, "read", "show", "display", "view") && mentionsFile(request):
		return a.planReadFile(task, request)

	case containsAny(request, "write", "save", "create", "edit") &&
		(strings.Contains(request, "file") || strings.Contains(request, ".txt")):
		return a.planWriteFile(task, request)

	case containsAny(request, "list", "files", "directory", "dir"):
		return a.planListFiles(task, request)

	case a.mentionsApp(request) != "" || urlRe.MatchString(request):
		return a.planLaunchApp(task, request)

	case containsAny(request, "settings", "preferences", "config"):
		return a.planOpenSettings(task)

	case containsAny(request, "email", "mail", "send"):
		return a.planEmail(task, request)

	default:
		return a.planGeneric(task)
	}
}

func (a *Agent) planNotes(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	if containsWord(request, "list", "show", "all") {
		plan := models.NewPlan(task.ID, agentID)
		plan.Steps = []models.PlanStep{newStep(1, "List saved notes", "note_list", map[string]any{
			"search_term": "",
		})}
		plan.Reasoning = "User wants to see their notes."
		plan.Confidence = 0.9
		return plan
	}

	content := stripLeadingVerbs(task.UserRequest,
		"take a note", "make a note", "create a note", "note down", "note that",
		"save a note", "remember that", "remember", "save", "note")
	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, "Save a note", "note_create", map[string]any{
		"title":   noteTitle(content),
		"content": content,
	})}
	plan.Reasoning = "User wants to save information as a note."
	plan.Confidence = 0.9
	return plan
}

func (a *Agent) planReminder(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	if containsWord(request, "list", "show", "all") {
		plan := models.NewPlan(task.ID, agentID)
		plan.Steps = []models.PlanStep{newStep(1, "List active reminders", "reminder_list", map[string]any{
			"filter_status": "active",
		})}
		plan.Reasoning = "User wants to see their reminders."
		plan.Confidence = 0.9
		return plan
	}

	timeSpec, timePhrase := extractTimeSpec(task.UserRequest)
	message := reminderMessage(task.UserRequest, timePhrase)

	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, "Set a reminder", "reminder_set", map[string]any{
		"message": message,
		"time":    timeSpec,
	})}
	plan.Reasoning = fmt.Sprintf("User wants a reminder at %s.", timeSpec)
	plan.Confidence = 0.9
	return plan
}

func (a *Agent) planReadFile(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	path := extractPath(task)
	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("Read file %s", path), "file_read", map[string]any{
		"file_path": path,
	})}
	plan.Reasoning = fmt.Sprintf("User requested the contents of %s.", path)
	plan.Confidence = 0.9
	return plan
}

func (a *Agent) planWriteFile(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	path := extractPath(task)
	content, _ := task.Context["content"].(string)
	if content == "" {
		content = quotedText(task.UserRequest)
	}
	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("Write file %s", path), "file_write", map[string]any{
		"file_path": path,
		"content":   content,
	})}
	plan.Reasoning = fmt.Sprintf("User requested writing content to %s.", path)
	plan.Confidence = 0.85
	return plan
}

func (a *Agent) planListFiles(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	directory := "."
	if d, ok := task.Context["directory"].(string); ok && d != "" {
		directory = d
	}
	if m := dirRe.FindString(task.UserRequest); m != "" {
		directory = strings.TrimSpace(m)
	}

	command := fmt.Sprintf("ls -la %s", directory)
	if runtime.GOOS == "windows" {
		command = fmt.Sprintf("dir /B %s", directory)
	}

	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("List files in %s", directory), "shell_command", map[string]any{
		"command": command,
	})}
	plan.Reasoning = fmt.Sprintf("User requested to list files in %s.", directory)
	plan.Confidence = 0.9
	return plan
}

func (a *Agent) planLaunchApp(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	plan := models.NewPlan(task.ID, agentID)

	if url := urlRe.FindString(task.UserRequest); url != "" {
		plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("Open %s", url), "browser_open", map[string]any{
			"url": url,
		})}
		plan.Reasoning = fmt.Sprintf("User requested to open %s in the browser.", url)
		plan.Confidence = 0.9
		return plan
	}

	app := a.mentionsApp(request)
	plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("Launch %s", app), "app_launch", map[string]any{
		"app_name": app,
	})}
	plan.Reasoning = fmt.Sprintf("User requested to open %s.", app)
	plan.Confidence = 0.9
	return plan
}

func (a *Agent) planOpenSettings(task *models.TaskDefinition) *models.ExecutionPlan {
	var command string
	switch runtime.GOOS {
	case "windows":
		command = "start ms-settings:"
	case "darwin":
		command = "open -b com.apple.systempreferences"
	default:
		command = "gnome-control-center"
	}

	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, "Open system settings", "shell_command", map[string]any{
		"command": command,
	})}
	plan.Reasoning = "User requested to open system settings."
	plan.Confidence = 0.95
	return plan
}

func (a *Agent) planEmail(task *models.TaskDefinition, request string) *models.ExecutionPlan {
	recipient, _ := task.Context["recipient"].(string)
	subject, _ := task.Context["subject"].(string)
	body, _ := task.Context["body"].(string)
	if body == "" {
		body = task.UserRequest
	}

	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, "Compose and send email", "email_compose", map[string]any{
		"recipient": recipient,
		"subject":   subject,
		"body":      body,
	})}
	plan.Reasoning = "User requested to send an email."
	plan.Confidence = 0.85
	return plan
}

func (a *Agent) planGeneric(task *models.TaskDefinition) *models.ExecutionPlan {
	plan := models.NewPlan(task.ID, agentID)
	plan.Steps = []models.PlanStep{newStep(1, fmt.Sprintf("Answer: %s", task.UserRequest), "generic_chat", map[string]any{
		"query": task.UserRequest,
	})}
	plan.Reasoning = fmt.Sprintf("No specific tool matched; answering conversationally: %s", task.UserRequest)
	plan.Confidence = 0.5
	return plan
}

// mentionsApp returns the first known application named in the request.
func (a *Agent) mentionsApp(request string) string {
	for _, app := range apps.SupportedApps() {
		if strings.Contains(request, app) {
			return app
		}
	}
	return ""
}

func newStep(order int, description, toolName string, args map[string]any) models.PlanStep {
	return models.PlanStep{
		ID:          uuid.NewString(),
		Order:       order,
		Description: description,
		ToolName:    toolName,
		ToolArgs:    args,
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// containsWord matches whole words only, so "all" does not hide inside
// "call". Used for the short list/show discriminators where substring
// matching misroutes.
func containsWord(s string, words ...string) bool {
	for _, token := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, w := range words {
			if token == w {
				return true
			}
		}
	}
	return false
}

// mentionsFile reports whether the request talks about a file: the word
// itself or any token carrying an extension-like dot.
func mentionsFile(request string) bool {
	if strings.Contains(request, "file") {
		return true
	}
	for _, token := range strings.Fields(request) {
		if strings.Contains(strings.Trim(token, ".,!?"), ".") {
			return true
		}
	}
	return false
}

// extractTimeSpec pulls a reminder time phrase out of the request and
// converts it to the reminder tool's time syntax. Defaults to one minute.
func extractTimeSpec(request string) (spec, phrase string) {
	if m := relativeTimeRe.FindStringSubmatch(request); m != nil {
		return m[1] + strings.ToLower(m[2])[:1], m[0]
	}
	if loc := tomorrowRe.FindStringIndex(request); loc != nil {
		rest := request[loc[1]:]
		if m := clockTimeRe.FindStringSubmatch(rest); m != nil {
			clockLoc := clockTimeRe.FindStringIndex(rest)
			return "tomorrow " + clockSpec(m), request[loc[0] : loc[1]+clockLoc[1]]
		}
		return "tomorrow", request[loc[0]:loc[1]]
	}
	if m := clockTimeRe.FindStringSubmatch(request); m != nil {
		return clockSpec(m), m[0]
	}
	return "1m", ""
}

// clockSpec renders a clock regex match as H:MM[am|pm].
func clockSpec(m []string) string {
	hour, minutes, meridiem := m[1], m[2], strings.ToLower(m[3])
	if minutes == "" {
		minutes = "00"
	}
	return hour + ":" + minutes + meridiem
}

// reminderMessage strips scheduling phrasing so only the thing to be
// reminded about remains.
func reminderMessage(request, timePhrase string) string {
	msg := request
	if timePhrase != "" {
		msg = strings.Replace(msg, timePhrase, "", 1)
	}
	msg = stripLeadingVerbs(msg,
		"remind me to", "remind me about", "remind me", "set a reminder to",
		"set a reminder for", "set a reminder", "set an alarm for", "schedule")
	msg = strings.Trim(msg, " .,")
	if msg == "" {
		msg = request
	}
	return capitalize(msg)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func stripLeadingVerbs(s string, prefixes ...string) string {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(trimmed[len(p):])
		}
	}
	return trimmed
}

func noteTitle(content string) string {
	words := strings.Fields(content)
	if len(words) > 6 {
		words = words[:6]
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = "Note"
	}
	return title
}

func extractPath(task *models.TaskDefinition) string {
	if p, ok := task.Context["file_path"].(string); ok && p != "" {
		return p
	}
	if m := pathRe.FindString(task.UserRequest); m != "" {
		return strings.Trim(m, ".,")
	}
	return ""
}

func quotedText(s string) string {
	if start := strings.IndexAny(s, `"'`); start >= 0 {
		quote := s[start]
		if end := strings.IndexByte(s[start+1:], quote); end >= 0 {
			return s[start+1 : start+1+end]
		}
	}
	return s
}

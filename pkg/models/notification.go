package models

// Notification is the channel-independent payload handed to notification
// transports.
type Notification struct {
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Priority  Priority `json:"priority"`
	Tag       string   `json:"tag,omitempty"`
	ActionURL string   `json:"action_url,omitempty"`
}

package companion

import (
	"time"

	"github.com/havenapp/haven/pkg/tasks"
)

// Message is one turn of a companion conversation as persisted.
type Message struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Text        string         `json:"text"`
	Timestamp   time.Time      `json:"timestamp"`
	TaskUpdates *UpdateSummary `json:"taskUpdates,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UpdateSummary records what a reply's task directive actually did, after
// clamping and cap enforcement, so the transcript shows the real effect
// rather than what the model asked for.
type UpdateSummary struct {
	Added   []AppliedAdd    `json:"newTasks,omitempty"`
	Removed []AppliedRemove `json:"removeTasks,omitempty"`
}

type AppliedAdd struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type AppliedRemove struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

func summarizeUpdate(u tasks.Update) *UpdateSummary {
	if u.Empty() {
		return nil
	}
	s := &UpdateSummary{}
	for _, t := range u.Added {
		s.Added = append(s.Added, AppliedAdd{ID: t.ID, Text: t.Text})
	}
	for _, r := range u.Removed {
		s.Removed = append(s.Removed, AppliedRemove{ID: r.Task.ID, Text: r.Task.Text, Reason: r.Reason})
	}
	return s
}

package tasks

import "time"

// Task is one to-do item. A task with Completed=false is "active"; the
// repository guarantees at most MaxActive of those exist after any operation.
type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewTask is a task the companion asked to add.
type NewTask struct {
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

// RemoveTask names a task the companion asked to remove. ID carries the task
// id when the model returned one, otherwise free text matched best-effort
// against task text.
type RemoveTask struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// Directive is a structured task-update instruction from the conversation
// API, applied under the same invariants as direct user edits.
type Directive struct {
	NewTasks    []NewTask    `json:"newTasks"`
	RemoveTasks []RemoveTask `json:"removeTasks"`
}

func (d Directive) Empty() bool {
	return len(d.NewTasks) == 0 && len(d.RemoveTasks) == 0
}

// Removal records a task that was removed and why: either the directive's
// own reason or AutoRemoveReason when the active cap forced it out.
type Removal struct {
	Task   Task
	Reason string
}

// Update summarizes what a directive actually did, for display alongside the
// assistant's message.
type Update struct {
	Added   []Task
	Removed []Removal
}

func (u Update) Empty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0
}

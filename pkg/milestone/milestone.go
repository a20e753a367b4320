package milestone

import "time"

// Definition is one achievement tier over the lifetime completed-task counter.
type Definition struct {
	Threshold   int    `json:"threshold"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Catalog returns the milestone tiers in ascending threshold order.
func Catalog() []Definition {
	return []Definition{
		{Threshold: 5, Title: "First Steps", Description: "Complete your first 5 tasks", Icon: "🌱"},
		{Threshold: 15, Title: "Getting Momentum", Description: "Finish 15 tasks total", Icon: "🚀"},
		{Threshold: 30, Title: "Productivity Pro", Description: "Complete 30 tasks", Icon: "⭐"},
		{Threshold: 50, Title: "Task Master", Description: "Achieve 50 completed tasks", Icon: "👑"},
		{Threshold: 100, Title: "Century Club", Description: "Complete 100 tasks!", Icon: "💎"},
	}
}

// State is the persisted achievement record for one tier. Achievement is one
// way: once set it survives any later counter value.
type State struct {
	Achieved   bool       `json:"achieved"`
	AchievedAt *time.Time `json:"achievedAt,omitempty"`
}

// Status pairs a tier with its achievement state for display.
type Status struct {
	Definition
	Achieved   bool
	AchievedAt *time.Time
}

// Progress describes how far the user is toward the next unachieved tier.
type Progress struct {
	Next     *Definition
	Count    int
	Percent  float64
	Complete bool
}

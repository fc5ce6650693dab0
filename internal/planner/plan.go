// Package planner generates and validates the 4-week sprint plan produced at
// stage completion.
package planner

import "fmt"

// SprintWeeks is the fixed number of weekly buckets in a plan.
const SprintWeeks = 4

// CapacityBuffer is the fraction of a member's weekly capacity that may be
// allocated. The remaining 20% stays unplanned as slack.
const CapacityBuffer = 0.8

// Priority of a sprint task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Task is one generated sprint task.
type Task struct {
	Title string `json:"title"`
	// Description must state a measurable completion criterion
	// ("Done when ..."); validation enforces the marker.
	Description   string   `json:"description"`
	Priority      Priority `json:"priority"`
	TimelineDays  float64  `json:"timeline_days"`
	AssigneeEmail string   `json:"assignee_email"`
}

// Week is one weekly bucket of tasks.
type Week struct {
	Week  int    `json:"week"`
	Tasks []Task `json:"tasks"`
}

// Plan is the full 4-week sprint plan.
type Plan struct {
	Weeks []Week `json:"weeks"`
}

// TaskCount returns the total number of tasks across all weeks.
func (p *Plan) TaskCount() int {
	n := 0
	for _, w := range p.Weeks {
		n += len(w.Tasks)
	}
	return n
}

func (p *Plan) String() string {
	return fmt.Sprintf("sprint plan: %d weeks, %d tasks", len(p.Weeks), p.TaskCount())
}

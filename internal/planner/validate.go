package planner

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/sprintforge/internal/team"
)

// ValidationError reports every structural-contract violation found in a
// generated plan. It marks a retryable generation failure: the orchestrator
// regenerates with the violations as feedback before giving up.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("sprint plan failed validation: %s", strings.Join(e.Violations, "; "))
}

// Validate checks a generated plan against the structural contract:
// exactly 4 weekly buckets numbered 1-4, complete task fields with a
// measurable completion criterion, assignees resolving to the roster, and
// the capacity buffer rule. Returns nil or a *ValidationError listing every
// violation.
func Validate(p *Plan, roster *team.Roster) error {
	var violations []string

	if len(p.Weeks) != SprintWeeks {
		violations = append(violations, fmt.Sprintf("plan has %d weeks, want exactly %d", len(p.Weeks), SprintWeeks))
	}

	seenWeeks := make(map[int]bool)
	// allocated days per member email per week number
	allocated := make(map[string]map[int]float64)

	for _, w := range p.Weeks {
		if w.Week < 1 || w.Week > SprintWeeks {
			violations = append(violations, fmt.Sprintf("week number %d out of range 1-%d", w.Week, SprintWeeks))
		}
		if seenWeeks[w.Week] {
			violations = append(violations, fmt.Sprintf("week %d appears more than once", w.Week))
		}
		seenWeeks[w.Week] = true

		for i, task := range w.Tasks {
			ref := fmt.Sprintf("week %d task %d", w.Week, i+1)
			if task.Title != "" {
				ref = fmt.Sprintf("week %d task %q", w.Week, task.Title)
			}

			if task.Title == "" {
				violations = append(violations, ref+": missing title")
			}
			if strings.TrimSpace(task.Description) == "" {
				violations = append(violations, ref+": missing description")
			} else if !hasCompletionCriterion(task.Description) {
				violations = append(violations, ref+": description lacks a measurable completion criterion (\"Done when ...\")")
			}
			if !task.Priority.Valid() {
				violations = append(violations, fmt.Sprintf("%s: priority %q not one of High/Medium/Low", ref, task.Priority))
			}
			if task.TimelineDays <= 0 {
				violations = append(violations, fmt.Sprintf("%s: timeline_days %v must be positive", ref, task.TimelineDays))
			}

			member, ok := roster.ByEmail(task.AssigneeEmail)
			if !ok {
				violations = append(violations, fmt.Sprintf("%s: assignee %q is not a known team member", ref, task.AssigneeEmail))
				continue
			}
			key := strings.ToLower(member.Email)
			if allocated[key] == nil {
				allocated[key] = make(map[int]float64)
			}
			allocated[key][w.Week] += task.TimelineDays
		}
	}

	// Buffer rule: per member per week, allocation may not exceed 80% of
	// stated weekly capacity.
	for _, m := range roster.Members {
		key := strings.ToLower(m.Email)
		limit := m.WeeklyCapacityDays * CapacityBuffer
		for week := 1; week <= SprintWeeks; week++ {
			days := allocated[key][week]
			if days > limit+1e-9 {
				violations = append(violations, fmt.Sprintf(
					"week %d: %s allocated %.2f days, exceeds %.2f (80%% of %.1f days capacity)",
					week, m.Email, days, limit, m.WeeklyCapacityDays))
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// hasCompletionCriterion checks for the textual Definition-of-Done marker the
// generation prompt requires in every description.
func hasCompletionCriterion(description string) bool {
	lower := strings.ToLower(description)
	return strings.Contains(lower, "done when") || strings.Contains(lower, "acceptance criteria")
}

package planner

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/sprintforge/internal/team"
)

const systemPrompt = `You are an experienced agile project manager. You turn a
validated startup idea and a real team roster into a concrete 4-week sprint
plan. You respond with a single JSON object and nothing else.`

// buildPrompt renders the generation prompt. feedback carries the violation
// list from a failed validation attempt, empty on the first try.
func buildPrompt(ideaContext string, roster *team.Roster, feedback []string) string {
	var b strings.Builder

	b.WriteString("Plan a 4-week sprint for the idea below.\n\n")
	b.WriteString("## Idea\n")
	b.WriteString(ideaContext)
	b.WriteString("\n\n## Team\n")
	b.WriteString(roster.Describe())

	b.WriteString(`
## Rules
- Exactly 4 weeks, numbered 1 through 4.
- Every task needs: title, description, priority (High/Medium/Low),
  timeline_days (positive, fractions allowed), assignee_email.
- Every description must end with a measurable completion criterion phrased
  as "Done when ...".
- assignee_email must be one of the team emails above.
- Per member per week, the summed timeline_days must stay at or below 80% of
  that member's weekly capacity. Leave the rest as slack.

## Output
A single JSON object:
{"weeks": [{"week": 1, "tasks": [{"title": "...", "description": "... Done when ...",
"priority": "High", "timeline_days": 1.5, "assignee_email": "..."}]}, ...]}
`)

	if len(feedback) > 0 {
		b.WriteString("\n## Previous attempt was rejected\nFix all of these violations:\n")
		for _, v := range feedback {
			fmt.Fprintf(&b, "- %s\n", v)
		}
	}

	return b.String()
}

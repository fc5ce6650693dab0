package planner

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ShayCichocki/sprintforge/internal/llm"
	"github.com/ShayCichocki/sprintforge/internal/team"
)

// DefaultRetries is the number of regeneration attempts after a validation
// failure before the failure escalates to the caller.
const DefaultRetries = 1

// Generator produces validated sprint plans.
type Generator struct {
	client  llm.Completer
	retries int
}

// NewGenerator creates a Generator. retries < 0 selects DefaultRetries.
func NewGenerator(client llm.Completer, retries int) *Generator {
	if retries < 0 {
		retries = DefaultRetries
	}
	return &Generator{client: client, retries: retries}
}

// Generate asks the model for a plan and validates it against the roster.
// A validation failure is retryable: the violations are fed back into the
// regeneration prompt. Generation errors (API, malformed JSON) are not
// retried here; only the structural contract gets a second chance.
func (g *Generator) Generate(ctx context.Context, ideaContext string, roster *team.Roster) (*Plan, error) {
	var feedback []string

	attempts := 1 + g.retries
	for attempt := 1; attempt <= attempts; attempt++ {
		var plan Plan
		prompt := buildPrompt(ideaContext, roster, feedback)
		if err := llm.CompleteJSON(ctx, g.client, systemPrompt, prompt, &plan); err != nil {
			return nil, fmt.Errorf("generate sprint plan: %w", err)
		}

		err := Validate(&plan, roster)
		if err == nil {
			return &plan, nil
		}

		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		if attempt == attempts {
			return nil, fmt.Errorf("generate sprint plan: %w", verr)
		}

		log.Printf("[planner] plan rejected on attempt %d/%d, regenerating: %d violations",
			attempt, attempts, len(verr.Violations))
		feedback = verr.Violations
	}

	// Unreachable: the loop always returns.
	return nil, fmt.Errorf("generate sprint plan: no attempts made")
}

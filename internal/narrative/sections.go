// Package narrative generates the project's narrative sections in the
// background, after the completion stream has already answered the client.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/sprintforge/internal/llm"
	"github.com/ShayCichocki/sprintforge/internal/store"
)

// SectionNames lists the generated sections in order.
var SectionNames = []string{
	"Overview",
	"Problem",
	"Solution",
	"Market",
	"Execution Plan",
}

// DefaultSectionDelay spaces out the per-section model calls to stay under
// provider rate limits.
const DefaultSectionDelay = 2 * time.Second

const sectionSystemPrompt = `You write one concise Markdown section of a
project narrative at a time. Respond with the section body only, no heading.`

// Generator produces narrative sections one at a time and persists each as
// soon as it is generated, so a mid-run failure keeps the finished sections.
type Generator struct {
	client llm.Completer
	db     *store.DB
	delay  time.Duration
}

// NewGenerator creates a Generator. delay < 0 selects DefaultSectionDelay;
// zero disables the pacing (used by tests).
func NewGenerator(client llm.Completer, db *store.DB, delay time.Duration) *Generator {
	if delay < 0 {
		delay = DefaultSectionDelay
	}
	return &Generator{client: client, db: db, delay: delay}
}

// Run generates and persists every section for the job's project. It is the
// work unit executed by the Dispatcher.
func (g *Generator) Run(ctx context.Context, job Job) error {
	for i, name := range SectionNames {
		if i > 0 && g.delay > 0 {
			select {
			case <-time.After(g.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		content, err := g.client.Complete(ctx, sectionSystemPrompt, sectionPrompt(name, job))
		if err != nil {
			return fmt.Errorf("generate section %q: %w", name, err)
		}

		err = g.db.SaveProjectSection(&store.ProjectSection{
			ID:        uuid.NewString(),
			ProjectID: job.ProjectID,
			Name:      name,
			Content:   content,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("persist section %q: %w", name, err)
		}
	}
	return nil
}

func sectionPrompt(name string, job Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the %q section for the project below.\n\n", name)
	b.WriteString("## Idea\n")
	b.WriteString(job.IdeaContext)
	if len(job.Documents) > 0 {
		b.WriteString("\n\n## Source documents\n")
		for _, d := range job.Documents {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}

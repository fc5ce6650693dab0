package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/sprintforge/internal/llm"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
)

const agentSystemPrompt = `You are a product coach guiding a founder through an eight-stage idea intake.
Stages 1-8 cover: problem, audience, solution, differentiation, market, team, execution, and review.
Answer the user's message for the current stage. Be concrete and brief, and end by telling them what the next stage needs.`

// Agent is the LLM-backed Responder for ordinary chat exchanges.
type Agent struct {
	client llm.Completer
}

// NewAgent creates the chat agent.
func NewAgent(client llm.Completer) *Agent {
	return &Agent{client: client}
}

// Respond answers one stage exchange with a single active envelope.
func (a *Agent) Respond(ctx context.Context, req *protocol.ChatRequest) (*protocol.ChatResponse, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current stage: %d of %d.\n", req.IdeaStateStage, protocol.FinalStage)
	if req.UserMessage != "" {
		b.WriteString("User message:\n")
		b.WriteString(req.UserMessage)
	} else {
		b.WriteString("The user sent no message; prompt them for what this stage needs.")
	}

	text, err := a.client.Complete(ctx, agentSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("chat agent: %w", err)
	}

	return &protocol.ChatResponse{
		ConnectionStatus: protocol.StatusActive,
		ResponseContent:  text,
		IdeaStateStage:   req.IdeaStateStage,
	}, nil
}

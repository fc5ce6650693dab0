// Package protocol defines the wire envelope exchanged with clients over the
// NDJSON chat stream and the line codec that frames it.
package protocol

import (
	"errors"
	"fmt"
)

// FinalStage is the terminal stage of the idea-intake workflow. Reaching it
// triggers the stage-completion run.
const FinalStage = 8

// ConnectionStatus describes the state of the chat connection carried on
// every envelope.
type ConnectionStatus string

const (
	// StatusStarted indicates the client is opening a session.
	StatusStarted ConnectionStatus = "started"
	// StatusActive indicates an ordinary mid-conversation exchange.
	StatusActive ConnectionStatus = "active"
	// StatusEventsStreaming indicates the envelope carries a completion event.
	StatusEventsStreaming ConnectionStatus = "events_streaming"
	// StatusEventsCompleted is the terminal success line of a completion run.
	StatusEventsCompleted ConnectionStatus = "events_completed"
	// StatusError is the terminal failure line; ErrorMessage is set.
	StatusError ConnectionStatus = "error"
	// StatusDisactive indicates the client is closing the session.
	StatusDisactive ConnectionStatus = "disactive"
)

// Valid reports whether s is a known connection status.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusStarted, StatusActive, StatusEventsStreaming,
		StatusEventsCompleted, StatusError, StatusDisactive:
		return true
	}
	return false
}

// Terminal reports whether s ends the stream. Exactly one terminal envelope
// is emitted per completion run.
func (s ConnectionStatus) Terminal() bool {
	return s == StatusEventsCompleted || s == StatusError
}

// EventType identifies a completion-run step on the wire.
type EventType string

const (
	EventTeamMembersSynced        EventType = "team_members_synced"
	EventProjectCreated           EventType = "project_created"
	EventSourcesUpdated           EventType = "sources_updated"
	EventSprintPlanGenerated      EventType = "sprint_plan_generated"
	EventNarrativeSectionsStarted EventType = "narrative_sections_started"
	EventCompleted                EventType = "completed"
)

// EventStatus marks whether a step has started or finished.
type EventStatus string

const (
	// EventStarted marks a step that has begun executing.
	EventStarted EventStatus = "started"
	// EventDone marks a finished step. narrative_sections_started never
	// reaches this status on the stream; its work is handed off to the
	// background pool.
	EventDone EventStatus = "completed"
)

// Event is a progress notification nested in a streamed envelope.
type Event struct {
	EventType   EventType   `json:"event_type"`
	EventStatus EventStatus `json:"event_status"`
	// ProjectID is set only on the completed/completed event.
	ProjectID string `json:"project_id,omitempty"`
}

// Message is one chat message replayed to the client on session open.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UserPreferences carries the requesting user's identity on a trigger.
type UserPreferences struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// ChatRequest is the inbound client → server message.
type ChatRequest struct {
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	SessionID        string           `json:"session_id"`
	UserID           string           `json:"user_id,omitempty"`
	UserMessage      string           `json:"user_message,omitempty"`
	IdeaStateStage   int              `json:"idea_state_stage"`
	UserPreferences  *UserPreferences `json:"user_preferences,omitempty"`
	Event            *Event           `json:"event,omitempty"`
}

// ErrMissingSessionID indicates a trigger without the required session id.
var ErrMissingSessionID = errors.New("session_id is required")

// Validate checks the trigger contract. It is run synchronously before any
// streaming begins, so violations surface as a plain error response rather
// than a streamed error envelope.
func (r *ChatRequest) Validate() error {
	if r.SessionID == "" {
		return ErrMissingSessionID
	}
	if !r.ConnectionStatus.Valid() {
		return fmt.Errorf("unknown connection_status %q", r.ConnectionStatus)
	}
	if r.IdeaStateStage < 0 || r.IdeaStateStage > FinalStage {
		return fmt.Errorf("idea_state_stage %d out of range 0-%d", r.IdeaStateStage, FinalStage)
	}
	return nil
}

// CompletionTrigger reports whether the request should start a
// stage-completion run: the workflow has advanced past the final stage.
func (r *ChatRequest) CompletionTrigger() bool {
	return r.ConnectionStatus == StatusActive && r.IdeaStateStage == FinalStage
}

// ChatResponse is the outbound server → client envelope. Exactly one of
// Event, ResponseContent, or ErrorMessage carries the payload.
type ChatResponse struct {
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	Event            *Event           `json:"event,omitempty"`
	IdeaStateStage   int              `json:"idea_state_stage"`
	Messages         []Message        `json:"messages,omitempty"`
	ResponseContent  string           `json:"response_content,omitempty"`
	FormattedOutput  map[string]any   `json:"formatted_output,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}

// EventEnvelope builds a streamed progress envelope for a completion-run step.
func EventEnvelope(et EventType, es EventStatus, stage int) *ChatResponse {
	return &ChatResponse{
		ConnectionStatus: StatusEventsStreaming,
		Event:            &Event{EventType: et, EventStatus: es},
		IdeaStateStage:   stage,
	}
}

// FinalEnvelope builds the completed/completed envelope carrying the new
// project identifier.
func FinalEnvelope(projectID string, stage int) *ChatResponse {
	return &ChatResponse{
		ConnectionStatus: StatusEventsStreaming,
		Event: &Event{
			EventType:   EventCompleted,
			EventStatus: EventDone,
			ProjectID:   projectID,
		},
		IdeaStateStage: stage,
	}
}

// SummaryEnvelope builds the stream-terminal success line.
func SummaryEnvelope(summary string, stage int) *ChatResponse {
	return &ChatResponse{
		ConnectionStatus: StatusEventsCompleted,
		ResponseContent:  summary,
		IdeaStateStage:   stage,
	}
}

// ErrorEnvelope builds the stream-terminal failure line.
func ErrorEnvelope(msg string, stage int) *ChatResponse {
	return &ChatResponse{
		ConnectionStatus: StatusError,
		ErrorMessage:     msg,
		IdeaStateStage:   stage,
	}
}

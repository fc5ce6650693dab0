package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/sprintforge/internal/config"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/stream"
	"github.com/ShayCichocki/sprintforge/internal/tui"
)

var (
	watchServerURL string
	watchUserID    string
)

var watchCmd = &cobra.Command{
	Use:   "watch <session-id>",
	Short: "Trigger a completion run and watch its event stream",
	Long: `Trigger the stage-completion run for a session on a running server
and render the streamed events as a live checklist.

The session must exist on the server and must not have completed already.

Examples:
  sprintforge watch sess-42
  sprintforge watch sess-42 --server http://localhost:9090 --user user-1`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServerURL, "server", "", "Server base URL (overrides config)")
	watchCmd.Flags().StringVar(&watchUserID, "user", "", "Lead user id for the created project")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	baseURL := cfg.TUI.ServerURL
	if watchServerURL != "" {
		baseURL = watchServerURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	body, err := openCompletionStream(baseURL, args[0], watchUserID)
	if err != nil {
		return err
	}
	defer body.Close()

	program, _ := tui.NewWatchProgram()

	go func() {
		reader := stream.NewReader(body)
		for {
			resp, rerr := reader.Next()
			if errors.Is(rerr, io.EOF) {
				program.Send(tui.StreamDoneMsg{})
				return
			}
			if rerr != nil {
				program.Send(tui.StreamDoneMsg{Err: rerr})
				return
			}
			program.Send(tui.EventMsg{Resp: resp})
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running watch display: %w", err)
	}
	return nil
}

// openCompletionStream POSTs the trigger and returns the NDJSON body. Any
// non-streaming rejection is surfaced as a plain error.
func openCompletionStream(baseURL, sessionID, userID string) (io.ReadCloser, error) {
	trigger := &protocol.ChatRequest{
		ConnectionStatus: protocol.StatusActive,
		SessionID:        sessionID,
		IdeaStateStage:   protocol.FinalStage,
	}
	if userID != "" {
		trigger.UserPreferences = &protocol.UserPreferences{UserID: userID}
	}

	payload, err := json.Marshal(trigger)
	if err != nil {
		return nil, fmt.Errorf("encoding trigger: %w", err)
	}

	resp, err := http.Post(baseURL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", baseURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody struct {
			Error string `json:"error"`
		}
		if derr := json.NewDecoder(resp.Body).Decode(&errBody); derr == nil && errBody.Error != "" {
			return nil, fmt.Errorf("server rejected trigger: %s", errBody.Error)
		}
		return nil, fmt.Errorf("server rejected trigger with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Completer is the narrow interface planner and narrative code depend on.
// *Client satisfies it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleteJSON runs a completion and unmarshals the response into out.
// Models occasionally wrap JSON in markdown fences or prose; the first
// balanced top-level object is extracted before unmarshaling.
func CompleteJSON(ctx context.Context, c Completer, system, prompt string, out any) error {
	text, err := c.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}

	raw, err := ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("model response: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("unmarshal model response: %w", err)
	}
	return nil
}

// ExtractJSON returns the first balanced top-level JSON object in text.
// Braces inside JSON strings are ignored.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object")
}

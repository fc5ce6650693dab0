package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyLine indicates a blank line was handed to the decoder. Consumers
// are expected to skip blank lines before decoding; see stream.Reader.
var ErrEmptyLine = errors.New("empty line")

// ParseError is returned when a wire line cannot be decoded into an
// envelope. It keeps the offending line for diagnostics.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse envelope %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// EncodeLine serializes an envelope to exactly one line of UTF-8 text,
// newline-terminated. Optional fields that are unset are omitted from the
// wire, never emitted as null. An envelope whose serialization would embed a
// newline is rejected; json.Marshal escapes newlines inside strings, so this
// guards the framing invariant rather than any expected input.
func EncodeLine(resp *ChatResponse) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	if bytes.IndexByte(b, '\n') >= 0 {
		return nil, fmt.Errorf("encode envelope: serialized form contains a newline")
	}
	return append(b, '\n'), nil
}

// DecodeLine parses one wire line into an envelope. The trailing newline and
// any carriage return are tolerated. Malformed lines return a *ParseError;
// absent optional fields decode to their zero values.
func DecodeLine(line []byte) (*ChatResponse, error) {
	trimmed := bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(trimmed)) == 0 {
		return nil, &ParseError{Line: string(line), Err: ErrEmptyLine}
	}

	var resp ChatResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, &ParseError{Line: string(trimmed), Err: err}
	}
	if !resp.ConnectionStatus.Valid() {
		return nil, &ParseError{
			Line: string(trimmed),
			Err:  fmt.Errorf("unknown connection_status %q", resp.ConnectionStatus),
		}
	}
	return &resp, nil
}

// Package hooks provides shared plumbing for the Claude Code hook binaries:
// the activity event record, the append-only log writer, and the stdout
// response helpers Claude Code expects.
package hooks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// Event is one line of the activity log. The daemon's hook log parser is the
// only consumer of this format.
type Event struct {
	Timestamp   string            `json:"timestamp"`
	SessionID   string            `json:"session_id"`
	EventType   string            `json:"event_type"`
	ProjectName string            `json:"project_name"`
	Data        map[string]string `json:"data,omitempty"`
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(sessionID, eventType, projectName string, data map[string]string) Event {
	return Event{
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		SessionID:   sessionID,
		EventType:   eventType,
		ProjectName: projectName,
		Data:        data,
	}
}

// AppendEvent appends one JSONL line to the activity log, creating the file
// and its directory if needed. The line is written with a single write call;
// lines stay well under the pipe atomicity limit so concurrent hook
// invocations cannot interleave.
func AppendEvent(path string, ev Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Response is the JSON response Claude Code reads from a hook's stdout.
type Response struct {
	Continue bool `json:"continue"`
}

// WriteResponse writes a hook response to stdout.
func WriteResponse(success bool) {
	data, _ := json.Marshal(Response{Continue: success})
	fmt.Println(string(data))
}

// WriteError writes an error to stderr and a non-blocking response to stdout.
// Hooks must never block Claude Code, so even errors respond continue=true.
func WriteError(hookName string, err error) {
	fmt.Fprintf(os.Stderr, "[%s] Error: %v\n", hookName, err)
	WriteResponse(true)
}

// ReadInput reads and decodes the hook input from r (normally stdin).
func ReadInput[T any](r io.Reader) (*T, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hook input: %w", err)
	}
	var input T
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode hook input: %w", err)
	}
	return &input, nil
}

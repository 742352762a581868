// Package hooklog parses the append-only JSONL activity log written by the
// Claude Code hook binaries into raw per-event activity sessions.
package hooklog

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/pkg/models"
)

// Event is one decoded activity log line.
type Event struct {
	Timestamp   string            `json:"timestamp"`
	SessionID   string            `json:"session_id"`
	EventType   string            `json:"event_type"`
	ProjectName string            `json:"project_name"`
	Data        map[string]string `json:"data,omitempty"`
}

// Parser converts activity log files into raw activity sessions. Malformed
// lines are skipped, never fatal: a partially corrupt log still yields every
// valid event it contains.
type Parser struct{}

// NewParser creates a hook log parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses a complete log file into raw per-event sessions.
// A missing or empty file yields an empty slice and no error.
func (p *Parser) ParseFile(path string) ([]models.ActivitySession, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", path).Msg("Activity log does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sessions []models.ActivitySession
	parsed, valid := 0, 0

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parsed++

		ev, ok := p.parseLine(line)
		if !ok {
			continue
		}
		session, ok := p.toSession(ev)
		if !ok {
			continue
		}
		sessions = append(sessions, session)
		valid++
	}
	if err := scanner.Err(); err != nil {
		return sessions, err
	}

	log.Debug().
		Str("path", path).
		Int("lines", parsed).
		Int("sessions", valid).
		Msg("Parsed activity log")
	return sessions, nil
}

// parseLine decodes and validates one JSONL line.
func (p *Parser) parseLine(line string) (*Event, bool) {
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		log.Warn().Err(err).Str("line", truncate(line, 100)).Msg("Skipping malformed log line")
		return nil, false
	}
	if strings.TrimSpace(ev.SessionID) == "" ||
		strings.TrimSpace(ev.EventType) == "" ||
		strings.TrimSpace(ev.Timestamp) == "" ||
		strings.TrimSpace(ev.ProjectName) == "" {
		log.Warn().Str("line", truncate(line, 100)).Msg("Skipping log line with missing required fields")
		return nil, false
	}
	return &ev, true
}

// toSession converts a decoded event into a raw activity session.
// Stop events carry the end time; the start time is backdated by a
// microsecond so the end-after-start rule holds for the raw event too.
func (p *Parser) toSession(ev *Event) (models.ActivitySession, bool) {
	ts, ok := parseTimestamp(ev.Timestamp)
	if !ok {
		log.Warn().Str("timestamp", ev.Timestamp).Msg("Skipping event with invalid timestamp")
		return models.ActivitySession{}, false
	}

	session := models.ActivitySession{
		ProjectName: ev.ProjectName,
		SessionID:   ev.SessionID,
		EventType:   ev.EventType,
		Metadata:    ev.Data,
	}

	switch strings.ToLower(ev.EventType) {
	case "stop", "subagentstop":
		end := ts
		session.Status = models.StatusStopped
		session.EndTime = &end
		session.StartTime = ts.Add(-time.Microsecond)
	case "notification", "activity":
		session.Status = models.StatusActive
		session.StartTime = ts
	default:
		log.Warn().Str("eventType", ev.EventType).Msg("Unknown event type, defaulting to ACTIVE")
		session.Status = models.StatusActive
		session.StartTime = ts
	}

	if err := session.Validate(); err != nil {
		log.Warn().Err(err).Str("sessionId", ev.SessionID).Msg("Skipping event that failed validation")
		return models.ActivitySession{}, false
	}
	return session, true
}

// parseTimestamp accepts RFC3339 with or without sub-second precision.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

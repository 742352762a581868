// Package main provides the Stop hook entry point. Claude Code invokes it
// when a session finishes responding; it appends a stop event to the
// monitor's activity log.
package main

import (
	"os"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/project"
	"github.com/vigilops/claude-vigil/pkg/hooks"
)

// Input is the hook input from Claude Code.
type Input struct {
	SessionID      string `json:"session_id"`
	CWD            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	StopHookActive bool   `json:"stop_hook_active"`
	TranscriptPath string `json:"transcript_path"`
}

func main() {
	input, err := hooks.ReadInput[Input](os.Stdin)
	if err != nil {
		hooks.WriteError("stop", err)
		return
	}

	cwd := input.CWD
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		} else {
			cwd = "."
		}
	}

	projectName := ""
	if resolver, err := project.NewResolver(); err == nil {
		projectName = resolver.Resolve(cwd)
	}

	eventType := "stop"
	if input.HookEventName == "SubagentStop" {
		eventType = "subagentstop"
	}

	ev := hooks.NewEvent(input.SessionID, eventType, projectName, map[string]string{
		"transcript_path": input.TranscriptPath,
	})

	if err := hooks.AppendEvent(config.ActivityLogPath(), ev); err != nil {
		hooks.WriteError("stop", err)
		return
	}
	hooks.WriteResponse(true)
}

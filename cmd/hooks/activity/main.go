// Package main provides the PreToolUse hook entry point. Claude Code invokes
// it before every tool use; it appends an activity event to the monitor's
// activity log.
package main

import (
	"os"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/project"
	"github.com/vigilops/claude-vigil/pkg/hooks"
)

// Input is the hook input from Claude Code.
type Input struct {
	SessionID      string         `json:"session_id"`
	CWD            string         `json:"cwd"`
	HookEventName  string         `json:"hook_event_name"`
	ToolName       string         `json:"tool_name"`
	TranscriptPath string         `json:"transcript_path"`
	ToolInput      map[string]any `json:"tool_input"`
}

func main() {
	input, err := hooks.ReadInput[Input](os.Stdin)
	if err != nil {
		// A hook must never block Claude Code; swallow bad input.
		hooks.WriteError("activity", err)
		return
	}

	resolver, err := project.NewResolver()
	projectName := ""
	if err == nil {
		projectName = resolver.Resolve(cwdOrDot(input.CWD))
	}

	ev := hooks.NewEvent(input.SessionID, "activity", projectName, map[string]string{
		"tool_name":       input.ToolName,
		"transcript_path": input.TranscriptPath,
	})

	if err := hooks.AppendEvent(config.ActivityLogPath(), ev); err != nil {
		hooks.WriteError("activity", err)
		return
	}
	hooks.WriteResponse(true)
}

func cwdOrDot(cwd string) string {
	if cwd != "" {
		return cwd
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

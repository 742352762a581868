// Package main provides the Notification hook entry point. Claude Code
// invokes it when a session is waiting for user input or permission; it
// appends a notification event to the monitor's activity log.
package main

import (
	"os"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/project"
	"github.com/vigilops/claude-vigil/pkg/hooks"
)

// Input is the hook input from Claude Code.
type Input struct {
	SessionID     string `json:"session_id"`
	CWD           string `json:"cwd"`
	HookEventName string `json:"hook_event_name"`
	Message       string `json:"message"`
}

func main() {
	input, err := hooks.ReadInput[Input](os.Stdin)
	if err != nil {
		hooks.WriteError("notification", err)
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

	ev := hooks.NewEvent(input.SessionID, "notification", projectName, map[string]string{
		"message": input.Message,
	})

	if err := hooks.AppendEvent(config.ActivityLogPath(), ev); err != nil {
		hooks.WriteError("notification", err)
		return
	}
	hooks.WriteResponse(true)
}

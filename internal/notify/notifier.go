// Package notify delivers desktop notifications for the monitoring daemon.
// Delivery is fire-and-forget: every failure is logged, none propagate.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vigilops/claude-vigil/internal/metrics"
)

const (
	// execTimeout bounds one notifier subprocess.
	execTimeout = 5 * time.Second

	// DefaultCooldown suppresses repeats of the same alert kind.
	DefaultCooldown = 5 * time.Minute

	title = "Claude Vigil"
)

// Runner executes external commands; the daemon passes its shared exec pool.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Notifier sends desktop notifications through whichever notifier command is
// available: terminal-notifier, osascript, or notify-send.
type Notifier struct {
	runner   Runner
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// New creates a notifier using the given command runner.
func New(runner Runner) *Notifier {
	return &Notifier{
		runner:   runner,
		cooldown: DefaultCooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// SendTimeWarning alerts that the current billing session ends soon.
func (n *Notifier) SendTimeWarning(minutesRemaining int) {
	n.send("time_warning", fmt.Sprintf("Session ends in %d minutes", minutesRemaining))
}

// SendInactivityAlert alerts that a long-running session looks inactive.
func (n *Notifier) SendInactivityAlert(minutesInactive int) {
	n.send("inactivity", fmt.Sprintf("Session appears inactive for ~%d minutes", minutesInactive))
}

// SendErrorNotification alerts about repeated collection failures.
func (n *Notifier) SendErrorNotification(message string) {
	n.send("error", "Monitoring error: "+message)
}

// send delivers one notification unless the same kind fired within the
// cooldown window.
func (n *Notifier) send(kind, message string) {
	n.mu.Lock()
	if last, ok := n.lastSent[kind]; ok && n.now().Sub(last) < n.cooldown {
		n.mu.Unlock()
		log.Debug().Str("kind", kind).Msg("Notification suppressed by cooldown")
		return
	}
	n.lastSent[kind] = n.now()
	n.mu.Unlock()

	if err := n.deliver(message); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Failed to deliver notification")
		return
	}
	metrics.NotificationsTotal.WithLabelValues(kind).Inc()
	log.Info().Str("kind", kind).Str("message", message).Msg("Notification sent")
}

// deliver tries each available notification command in order.
func (n *Notifier) deliver(message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	attempts := [][]string{
		{"terminal-notifier", "-title", title, "-message", message, "-sound", "default"},
		{"osascript", "-e", fmt.Sprintf("display notification %q with title %q", message, title)},
		{"notify-send", title, message},
	}

	var lastErr error
	for _, cmd := range attempts {
		_, err := n.runner.Run(ctx, cmd[0], cmd[1:]...)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no notification command succeeded: %w", lastErr)
}

// Package notify is the best-effort Slack notifier the workflow
// executor pings when a phase starts. A send failure is logged and
// swallowed; it never blocks or fails a phase.
package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/douhashi/soba/internal/logging"
)

// Notifier posts phase-lifecycle events to a configured Slack webhook.
type Notifier struct {
	WebhookURL string
	Enabled    bool
	Log        logging.Logger
}

// New builds a Notifier. Enabled gates every call to a no-op when false
// (e.g. notifications_enabled: false, or no webhook_url configured).
func New(webhookURL string, enabled bool, log logging.Logger) *Notifier {
	if log == nil {
		log = logging.Nop{}
	}
	return &Notifier{WebhookURL: webhookURL, Enabled: enabled && webhookURL != "", Log: log}
}

// PhaseStarted posts a "phase started" message for issue.
func (n *Notifier) PhaseStarted(repo string, issue int, phaseName string) {
	if !n.Enabled {
		return
	}
	text := fmt.Sprintf(":rocket: %s issue #%d entering phase `%s`", repo, issue, phaseName)
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhook(n.WebhookURL, msg); err != nil {
		n.Log.Warnw("slack notification failed", "error", err, "issue", issue, "phase", phaseName)
	}
}

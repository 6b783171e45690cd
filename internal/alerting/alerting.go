// Package alerting posts operational Slack notifications: a Jobber
// submission that failed outright, or a connector that can't establish
// a connection three times running. Grounded on pkg/slack/notifier.go's
// shape (bot-token-gated client, IsEnabled no-op fallback) but stripped
// down to plain text messages — this package has no on-call escalation
// policy to render blocks for.
package alerting

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier posts operational alerts to one configured Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. If botToken is empty the notifier is
// a no-op — every post logs at debug level and returns nil, mirroring
// the teacher's "slack integration disabled" behavior rather than
// erroring every caller that doesn't care whether alerting is wired up.
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether this notifier has a live Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

func (n *Notifier) post(ctx context.Context, text string) error {
	if !n.IsEnabled() {
		n.logger.Debug("alerting disabled, skipping post", "text", text)
		return nil
	}
	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting alert to slack: %w", err)
	}
	return nil
}

// NotifyJobFailure posts when a Jobber submission call itself comes back
// with a "failed" status (pkg/jobber's Handler.track); failed statuses
// reported later by callback do not trigger it.
func (n *Notifier) NotifyJobFailure(ctx context.Context, jobID, jobType, reason string) error {
	return n.post(ctx, fmt.Sprintf(":x: Jobber job `%s` (%s) failed: %s", jobID, jobType, reason))
}

// NotifyConnectorDown posts when connpool.FailureObserver reports a
// connector has failed its probe three times running for the same
// (tenant, kind) — the threshold this package enforces before paging,
// so a single transient blip never pages anyone.
func (n *Notifier) NotifyConnectorDown(ctx context.Context, tenantID, kind string, consecutive int, cause error) error {
	const pageThreshold = 3
	if consecutive < pageThreshold || consecutive%pageThreshold != 0 {
		return nil
	}
	return n.post(ctx, fmt.Sprintf(":warning: %s connector unreachable for tenant `%s` after %d consecutive failures: %v",
		kind, tenantID, consecutive, cause))
}

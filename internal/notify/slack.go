// Package notify surfaces background failures (persistence, title
// updates) to an ops channel so fire-and-forget work is not silently
// lost.
package notify

import (
	"context"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Notifier posts operational alerts. Implementations must be safe for
// concurrent use and must never block request handling.
type Notifier interface {
	Alert(ctx context.Context, text string)
}

// SlackNotifier posts alerts to a Slack channel. A zero-value token
// yields a disabled notifier that only logs.
type SlackNotifier struct {
	api     *slack.Client
	channel string
	logger  *zap.Logger
}

func NewSlackNotifier(botToken, channel string, logger *zap.Logger) *SlackNotifier {
	n := &SlackNotifier{channel: channel, logger: logger}
	if botToken != "" && channel != "" {
		n.api = slack.New(botToken)
	}
	return n
}

// Alert posts the text to the configured channel. Delivery failures are
// logged and dropped: alerting must never become a second failure mode.
func (n *SlackNotifier) Alert(ctx context.Context, text string) {
	if n.api == nil {
		n.logger.Debug("slack alerting disabled, dropping alert", zap.String("text", text))
		return
	}

	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Error("failed to post slack alert", zap.Error(err), zap.String("channel", n.channel))
	}
}

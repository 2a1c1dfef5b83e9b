package alert

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack delivers alerts to a fixed channel.
type Slack struct {
	api     *slack.Client
	channel string
}

// NewSlack verifies the bot token and targets channel.
func NewSlack(botToken, channel string) (*Slack, error) {
	api := slack.New(botToken)
	if _, err := api.AuthTest(); err != nil {
		return nil, fmt.Errorf("alert: slack auth test: %w", err)
	}
	return &Slack{api: api, channel: channel}, nil
}

func (s *Slack) Notify(ctx context.Context, event, text string) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(fmt.Sprintf("[%s] %s", event, text), false))
	if err != nil {
		return fmt.Errorf("alert: slack send: %w", err)
	}
	return nil
}

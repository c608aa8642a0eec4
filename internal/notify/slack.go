package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/crewcall/crewcall/internal/timeline"
)

// slackPoster is the slice of the Slack client the notifier uses.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts due notifications to a Slack channel.
type SlackNotifier struct {
	api     slackPoster
	channel string
}

// NewSlackNotifier creates a notifier posting to channel with the given bot
// token.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{api: slack.New(token), channel: channel}
}

func (s *SlackNotifier) Notify(ctx context.Context, n timeline.Notification) error {
	text := n.Message
	if n.NotificationType != "" {
		text = fmt.Sprintf("[%s] %s", n.NotificationType, n.Message)
	}
	_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

package notify

import (
	"log/slog"

	"github.com/slack-go/slack"
)

var slackColor = map[Level]string{
	Debug:     "#808080",
	Info:      "#2eb67d",
	Success:   "#36a64f",
	Highlight: "#ecb22e",
	Warning:   "#e8912d",
	Error:     "#e01e5a",
}

// SlackNotifier posts a message to a Slack incoming webhook for every
// notification at or above threshold. Posting failures are logged, never
// propagated — a broken webhook must not take down the supervisor.
type SlackNotifier struct {
	webhookURL string
	threshold  Level
	logger     *slog.Logger
}

// NewSlackNotifier builds a SlackNotifier posting to webhookURL.
func NewSlackNotifier(webhookURL string, threshold Level, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		threshold:  threshold,
		logger:     logger.With("component", "slack_notifier"),
	}
}

func (s *SlackNotifier) Notify(level Level, message string) {
	if level < s.threshold {
		return
	}
	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color:  slackColor[level],
				Text:   message,
				Footer: level.String(),
			},
		},
	}
	if err := slack.PostWebhook(s.webhookURL, msg); err != nil {
		s.logger.Warn("slack notification failed", "error", err)
	}
}

var _ Notifier = (*SlackNotifier)(nil)

package push

import (
	"context"

	"go.uber.org/zap"
)

type logNotifier struct{}

// NewLog returns a Notifier that only logs. Used when no messaging
// credentials are configured, so the rest of the app can stay wired.
func NewLog() Notifier {
	return logNotifier{}
}

func (logNotifier) Send(_ context.Context, tokens []string, title, body string, _ map[string]string) error {
	zap.S().Infow("push suppressed, no messaging credentials",
		"tokens", len(tokens),
		"title", title,
		"body", body)
	return nil
}

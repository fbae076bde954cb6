package push

import "context"

// Notifier delivers push notifications to device registration tokens.
type Notifier interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

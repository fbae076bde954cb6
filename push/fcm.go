package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/unit-mercury/mercury-api/config"
)

// Multicast messages carry at most 500 tokens per request.
const fcmBatchLimit = 500

type fcmNotifier struct {
	client *messaging.Client
}

// NewFCM builds a Notifier on top of firebase cloud messaging, configured
// from the service-account credentials file.
func NewFCM(ctx context.Context, conf *config.Config) (Notifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return &fcmNotifier{client: client}, nil
}

// Send fans the notification out to every token, batching per the FCM
// multicast limit. A failed batch is logged and the remaining batches are
// still attempted.
func (f *fcmNotifier) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	for i := 0; i < len(tokens); i += fcmBatchLimit {
		end := i + fcmBatchLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[i:end]

		resp, err := f.client.SendMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		})
		if err != nil {
			zap.S().Errorf("Failed to send push batch (tokens %d-%d): %v", i, end-1, err)
			continue
		}
		if resp.FailureCount > 0 {
			zap.S().Warnf("Push batch delivered with %d failure(s) out of %d", resp.FailureCount, len(batch))
		}
	}

	return nil
}

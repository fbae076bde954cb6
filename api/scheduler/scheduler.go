package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/models"
	"github.com/unit-mercury/mercury-api/push"
)

// Scheduler dispatches delayed push notifications. Pending sends live in the
// scheduledNotifications collection, so they survive process restarts; a cron
// job polls for due documents every minute and deletes each one after a
// successful send. Cancelling a pending send is deleting its document.
type Scheduler struct {
	cron *cron.Cron
	DB   databases.ScheduledNotificationDatabase
	Push push.Notifier
}

// New creates a scheduler instance on the given collection and push sender
func New(db databases.ScheduledNotificationDatabase, notifier push.Notifier) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		DB:   db,
		Push: notifier,
	}
}

// Start begins the scheduler with the dispatch job registered
func (s *Scheduler) Start() {
	_, err := s.cron.AddFunc("@every 1m", s.DispatchDue)
	if err != nil {
		zap.S().Errorw("failed to register dispatch job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("notification scheduler started")
}

// Stop gracefully stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("notification scheduler stopped")
}

// Schedule stores a push for later delivery and returns its id. Sends whose
// due time is already in the past are stored anyway and go out on the next
// dispatch pass.
func (s *Scheduler) Schedule(ctx context.Context, sendAt time.Time, tokens []string, title, body string, data map[string]string) (string, error) {
	id := uuid.New().String()
	err := s.DB.InsertOne(ctx, models.ScheduledNotification{
		ID:        id,
		SendAt:    sendAt.UTC(),
		Tokens:    tokens,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Cancel drops a pending send. Cancelling an id that already went out is a
// no-op.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	_, err := s.DB.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DispatchDue sends every scheduled notification whose due time has passed.
// A failed send keeps its document so the next pass retries it.
func (s *Scheduler) DispatchDue() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	due, err := s.DB.Find(ctx, bson.M{"sendAt": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		zap.S().Errorw("failed to query due notifications", "error", err)
		return
	}

	for _, n := range due {
		if err := s.Push.Send(ctx, n.Tokens, n.Title, n.Body, n.Data); err != nil {
			zap.S().Errorw("failed to send scheduled notification",
				"id", n.ID,
				"error", err)
			continue
		}
		if _, err := s.DB.DeleteOne(ctx, bson.M{"_id": n.ID}); err != nil {
			zap.S().Errorw("failed to delete sent notification",
				"id", n.ID,
				"error", err)
		}
	}
}

package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/unit-mercury/mercury-api/api/scheduler"
	dbmocks "github.com/unit-mercury/mercury-api/databases/mocks"
	"github.com/unit-mercury/mercury-api/models"
	pushmocks "github.com/unit-mercury/mercury-api/push/mocks"
)

func TestScheduler_ScheduleStoresPending(t *testing.T) {
	db := dbmocks.NewScheduledNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	sendAt := time.Now().Add(time.Hour)
	var stored models.ScheduledNotification
	db.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ScheduledNotification")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(models.ScheduledNotification)
		}).
		Return(nil)

	s := scheduler.New(db, notifier)
	id, err := s.Schedule(context.Background(), sendAt, []string{"token-1"}, "confirm event", "PT formation", nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, stored.ID)
	assert.Equal(t, sendAt.UTC(), stored.SendAt)
	assert.Equal(t, []string{"token-1"}, stored.Tokens)
}

func TestScheduler_DispatchDueDeletesOnSuccess(t *testing.T) {
	db := dbmocks.NewScheduledNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	due := models.ScheduledNotification{
		ID:     "pending-1",
		SendAt: time.Now().Add(-time.Minute),
		Tokens: []string{"token-1"},
		Title:  "medical appointment",
		Body:   "dental readiness due date on 2026-12-01",
	}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.ScheduledNotification{due}, nil)
	notifier.On("Send", mock.Anything, due.Tokens, due.Title, due.Body, due.Data).Return(nil)
	db.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)

	s := scheduler.New(db, notifier)
	s.DispatchDue()

	db.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestScheduler_DispatchDueKeepsFailedSends(t *testing.T) {
	db := dbmocks.NewScheduledNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	due := models.ScheduledNotification{
		ID:     "pending-1",
		SendAt: time.Now().Add(-time.Minute),
		Tokens: []string{"token-1"},
		Title:  "invite to an event",
	}
	db.On("Find", mock.Anything, mock.Anything).Return([]models.ScheduledNotification{due}, nil)
	notifier.On("Send", mock.Anything, due.Tokens, due.Title, due.Body, due.Data).
		Return(errors.New("mocked-error"))

	s := scheduler.New(db, notifier)
	s.DispatchDue()

	// the document stays so the next pass retries it
	db.AssertNotCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestScheduler_CancelDeletesPending(t *testing.T) {
	db := dbmocks.NewScheduledNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	db.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := scheduler.New(db, notifier)
	assert.NoError(t, s.Cancel(context.Background(), "already-sent"))
}

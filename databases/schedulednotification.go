package databases

// go generate: mockery --name ScheduledNotificationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/models"
)

const scheduledNotificationName = "scheduledNotifications"

// ScheduledNotificationDatabase contains the methods to use with the durable
// delayed-notification queue
type ScheduledNotificationDatabase interface {
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.ScheduledNotification, error)
	InsertOne(context.Context, models.ScheduledNotification) error
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
}

type scheduledNotificationDatabase struct {
	db DatabaseHelper
}

// NewScheduledNotificationDatabase initializes a new instance of scheduled notification database
// with the provided db connection
func NewScheduledNotificationDatabase(db DatabaseHelper) ScheduledNotificationDatabase {
	return &scheduledNotificationDatabase{
		db: db,
	}
}

func (s *scheduledNotificationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ScheduledNotification, error) {
	var pending []models.ScheduledNotification
	cur, err := s.db.Collection(scheduledNotificationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&pending)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *scheduledNotificationDatabase) InsertOne(ctx context.Context, n models.ScheduledNotification) error {
	_, err := s.db.Collection(scheduledNotificationName).InsertOne(ctx, n)
	return err
}

func (s *scheduledNotificationDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return s.db.Collection(scheduledNotificationName).DeleteOne(ctx, filter, opts...)
}

package databases

// go generate: mockery --name RosterDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/models"
)

const rosterName = "rosters"

// RosterDatabase contains the methods to use with the roster database
type RosterDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Roster, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Roster, error)
	InsertOne(context.Context, models.Roster) error
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
}

type rosterDatabase struct {
	db DatabaseHelper
}

// NewRosterDatabase initializes a new instance of roster database with the provided db connection
func NewRosterDatabase(db DatabaseHelper) RosterDatabase {
	return &rosterDatabase{
		db: db,
	}
}

func (r *rosterDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Roster, error) {
	roster := &models.Roster{}
	err := r.db.Collection(rosterName).FindOne(ctx, filter, opts...).Decode(&roster)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

func (r *rosterDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Roster, error) {
	var rosters []models.Roster
	cur, err := r.db.Collection(rosterName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&rosters)
	if err != nil {
		return nil, err
	}
	return rosters, nil
}

func (r *rosterDatabase) InsertOne(ctx context.Context, roster models.Roster) error {
	_, err := r.db.Collection(rosterName).InsertOne(ctx, roster)
	return err
}

func (r *rosterDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.db.Collection(rosterName).UpdateOne(ctx, filter, update, opts...)
}

func (r *rosterDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return r.db.Collection(rosterName).DeleteOne(ctx, filter, opts...)
}

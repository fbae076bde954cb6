package databases

// go generate: mockery --name FileDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/models"
)

const fileName = "files"

// FileDatabase contains the methods to use with the file database
type FileDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.File, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.File, error)
	InsertOne(context.Context, models.File) error
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
}

type fileDatabase struct {
	db DatabaseHelper
}

// NewFileDatabase initializes a new instance of file database with the provided db connection
func NewFileDatabase(db DatabaseHelper) FileDatabase {
	return &fileDatabase{
		db: db,
	}
}

func (f *fileDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.File, error) {
	file := &models.File{}
	err := f.db.Collection(fileName).FindOne(ctx, filter, opts...).Decode(&file)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (f *fileDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.File, error) {
	var files []models.File
	cur, err := f.db.Collection(fileName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&files)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (f *fileDatabase) InsertOne(ctx context.Context, file models.File) error {
	_, err := f.db.Collection(fileName).InsertOne(ctx, file)
	return err
}

func (f *fileDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return f.db.Collection(fileName).UpdateOne(ctx, filter, update, opts...)
}

func (f *fileDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return f.db.Collection(fileName).DeleteOne(ctx, filter, opts...)
}

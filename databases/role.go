package databases

// go generate: mockery --name RoleDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/models"
)

const roleName = "roles"

// RoleDatabase contains the methods to use with the global role document
type RoleDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.RoleSet, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type roleDatabase struct {
	db DatabaseHelper
}

// NewRoleDatabase initializes a new instance of role database with the provided db connection
func NewRoleDatabase(db DatabaseHelper) RoleDatabase {
	return &roleDatabase{
		db: db,
	}
}

func (r *roleDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.RoleSet, error) {
	roleSet := &models.RoleSet{}
	err := r.db.Collection(roleName).FindOne(ctx, filter, opts...).Decode(&roleSet)
	if err != nil {
		return nil, err
	}
	return roleSet, nil
}

func (r *roleDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return r.db.Collection(roleName).UpdateOne(ctx, filter, update, opts...)
}

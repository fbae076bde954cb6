package databases

// go generate: mockery --name MedicalDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/models"
)

const medicalName = "medicalRecords"

// MedicalDatabase contains the methods to use with the medical record database
type MedicalDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.MedicalRecord, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.MedicalRecord, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type medicalDatabase struct {
	db DatabaseHelper
}

// NewMedicalDatabase initializes a new instance of medical database with the provided db connection
func NewMedicalDatabase(db DatabaseHelper) MedicalDatabase {
	return &medicalDatabase{
		db: db,
	}
}

func (m *medicalDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.MedicalRecord, error) {
	record := &models.MedicalRecord{}
	err := m.db.Collection(medicalName).FindOne(ctx, filter, opts...).Decode(&record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (m *medicalDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.MedicalRecord, error) {
	var records []models.MedicalRecord
	cur, err := m.db.Collection(medicalName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (m *medicalDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return m.db.Collection(medicalName).UpdateOne(ctx, filter, update, opts...)
}

package models

import "time"

// Fixed descriptions used to key the two due-date events derived from a
// medical import. Re-imports look events up by (dod, description) so they
// update rather than duplicate.
const (
	MedicalDentalDescription   = "dental readiness due date"
	MedicalPhysicalDescription = "physical health assessment due date"
)

// MedicalRecord holds the structure for the medicalRecords collection in
// mongo, one document per person keyed by dod. Bulk CSV imports upsert these.
type MedicalRecord struct {
	Dod         string    `json:"dod" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Upc         string    `json:"upc" bson:"upc"`
	UnitName    string    `json:"unit_name" bson:"unit_name"`
	Mrc         string    `json:"mrc" bson:"mrc"`
	Drc         string    `json:"drc" bson:"drc"`
	DentDate    time.Time `json:"dent_date" bson:"dent_date"`
	PhaDate     time.Time `json:"pha_date" bson:"pha_date"`
	CreatorUID  string    `json:"creator_uid" bson:"creator_uid"`
	CreatorName string    `json:"creator_name" bson:"creator_name"`
	CreatorDod  string    `json:"creator_dod" bson:"creator_dod"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

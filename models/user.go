package models

import "time"

// DefaultProfilePicture is assigned at registration when the user does not
// supply a picture of their own.
const DefaultProfilePicture = "profile_picture/ArmyReserve.png"

// User holds the structure for the users collection in mongo. The document id
// is the identity-provider uid; dod is the external personnel identifier used
// by invites and the org chart. Signature and profile picture fields are blob
// paths plus the delivery URL captured at upload time.
type User struct {
	UID               string    `json:"uid" bson:"_id"`
	Dod               string    `json:"dod" bson:"dod"`
	Name              string    `json:"name" bson:"name"`
	Email             string    `json:"email" bson:"email"`
	Phone             string    `json:"phone" bson:"phone"`
	Role              string    `json:"role" bson:"role"`
	Rank              string    `json:"rank" bson:"rank"`
	Grade             string    `json:"grade" bson:"grade"`
	Branch            string    `json:"branch" bson:"branch"`
	Superior          string    `json:"superior" bson:"superior"`
	UnitName          string    `json:"unit_name" bson:"unit_name"`
	Description       string    `json:"description" bson:"description"`
	Files             []string  `json:"files,omitempty" bson:"files"`
	Signature         string    `json:"signature,omitempty" bson:"signature,omitempty"`
	SignatureURL      string    `json:"-" bson:"signature_url,omitempty"`
	ProfilePicture    string    `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
	ProfilePictureURL string    `json:"-" bson:"profile_picture_url,omitempty"`
	FCMToken          string    `json:"FCMToken,omitempty" bson:"FCMToken,omitempty"`
	Timestamp         time.Time `json:"timestamp" bson:"timestamp"`
}

// OrgMember is one node of the org-chart tree stored in blob storage at
// org/org.json. Sub holds direct reports.
type OrgMember struct {
	Dod  string      `json:"dod"`
	Name string      `json:"name"`
	Sub  []OrgMember `json:"sub,omitempty"`
}

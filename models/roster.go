package models

import "time"

// Roster holds the structure for the rosters collection in mongo. The roster
// name is the document id, so duplicate names are rejected at registration.
type Roster struct {
	Name      string         `json:"roster_name" bson:"_id"`
	Author    string         `json:"author" bson:"author"`
	Users     []RosterMember `json:"users" bson:"users"`
	Timestamp time.Time      `json:"timestamp" bson:"timestamp"`
}

// RosterMember is one person on a roster, identified by dod
type RosterMember struct {
	Dod      string `json:"dod" bson:"dod"`
	Name     string `json:"name" bson:"name"`
	Rank     string `json:"rank,omitempty" bson:"rank,omitempty"`
	UnitName string `json:"unit_name,omitempty" bson:"unit_name,omitempty"`
}

package models

import "time"

// Event holds the structure for the events collection in mongo. Start and end
// times are ISO-8601 strings as supplied by the mobile client; timestamp is
// the server-side last-modified marker used for ordering.
type Event struct {
	EventID      string    `json:"event_id" bson:"_id"`
	Author       string    `json:"author" bson:"author"`
	Title        string    `json:"title" bson:"title"`
	Starttime    string    `json:"starttime" bson:"starttime"`
	Endtime      string    `json:"endtime" bson:"endtime"`
	Type         string    `json:"type" bson:"type"`
	Period       bool      `json:"period" bson:"period"`
	Organizer    string    `json:"organizer" bson:"organizer"`
	Description  string    `json:"description" bson:"description"`
	InviteesDod  []string  `json:"invitees_dod,omitempty" bson:"invitees_dod"`
	ConfirmedDod []string  `json:"confirmed_dod,omitempty" bson:"confirmed_dod"`
	TimerID      string    `json:"-" bson:"timer_id,omitempty"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`

	// Battle-assembly imports carry the extra drill-schedule columns.
	Unit           string `json:"unit,omitempty" bson:"unit,omitempty"`
	Location       string `json:"location,omitempty" bson:"location,omitempty"`
	Muta           string `json:"muta,omitempty" bson:"muta,omitempty"`
	TrainingEvents string `json:"training_events,omitempty" bson:"training_events,omitempty"`
	Remarks        string `json:"remarks,omitempty" bson:"remarks,omitempty"`
}

// Target selector values for listing events
const (
	EventTargetInvited   = 0
	EventTargetConfirmed = 1
	EventTargetBoth      = 2
	EventTargetAuthored  = 3
)

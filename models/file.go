package models

import "time"

// File status codes. A file is author-editable until a terminal decision is
// made; 4 and 5 are terminal.
const (
	StatusSubmitted        = 1
	StatusRecommended      = 2
	StatusResubmitRequest  = 3
	StatusApproved         = 4
	StatusRejected         = 5
)

// Filetype enum values accepted on upload
const (
	FiletypeRequestForm  = "request_form"
	FiletypeStandardForm = "standard_form"
)

// File holds the structure for the files collection in mongo. The binary
// content lives in blob storage keyed by the file id; this document is
// metadata only.
type File struct {
	ID              string    `json:"id" bson:"_id"`
	Author          string    `json:"author" bson:"author"`
	Filename        string    `json:"filename" bson:"filename"`
	Filetype        string    `json:"filetype" bson:"filetype"`
	Status          int       `json:"status" bson:"status"`
	Reviewer        string    `json:"reviewer" bson:"reviewer"`
	Recommender     string    `json:"recommender,omitempty" bson:"recommender,omitempty"`
	Comment         string    `json:"comment" bson:"comment"`
	ReviewerVisible bool      `json:"reviewer_visible" bson:"reviewer_visible"`
	IsRecommended   bool      `json:"is_recommended" bson:"is_recommended"`
	ContentURL      string    `json:"content_url,omitempty" bson:"content_url,omitempty"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
}

// Editable reports whether the author may still modify the file. Terminal
// decisions (approved/rejected) freeze the case.
func (f File) Editable() bool {
	return f.Status >= 0 && f.Status <= StatusResubmitRequest
}

// ValidFiletype reports whether s is one of the two known filetype values
func ValidFiletype(s string) bool {
	return s == FiletypeRequestForm || s == FiletypeStandardForm
}

// ValidDecision reports whether a review decision is one of
// resubmit/approve/reject
func ValidDecision(d int) bool {
	return d >= StatusResubmitRequest && d <= StatusRejected
}

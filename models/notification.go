package models

import "time"

// Notification types emitted by the workflows
const (
	NotificationReviewFile         = "review file"
	NotificationRecommendFile      = "recommend file"
	NotificationFileRecommended    = "file recommended"
	NotificationFileNotRecommended = "file not recommended"
	NotificationFileApproved       = "file approved"
	NotificationFileRejected       = "file rejected"
	NotificationResubmitFile       = "resubmit file"
	NotificationEventInvite        = "invite to an event"
	NotificationEventCanceled      = "event canceled"
	NotificationEventUpdated       = "event updated"
	NotificationEventConfirmed     = "confirm event"
	NotificationMedicalDue         = "medical appointment"
)

// Notification holds the structure for the notifications collection in mongo.
// RefID points at the file or event the notification is about.
type Notification struct {
	NotificationID   string    `json:"notification_id" bson:"_id"`
	NotificationType string    `json:"notification_type" bson:"notification_type"`
	Sender           string    `json:"sender" bson:"sender"`
	SenderName       string    `json:"sender_name" bson:"sender_name"`
	Receiver         string    `json:"receiver" bson:"receiver"`
	Type             string    `json:"type" bson:"type"`
	FileType         string    `json:"file_type,omitempty" bson:"file_type,omitempty"`
	RefID            string    `json:"id" bson:"id"`
	Read             bool      `json:"read" bson:"read"`
	Timestamp        time.Time `json:"timestamp" bson:"timestamp"`
}

// ScheduledNotification is a durable delayed push: a due time plus the FCM
// payload. It is polled by the scheduler and deleted once sent, so pending
// reminders survive process restarts. Cancellation is deletion by id.
type ScheduledNotification struct {
	ID        string            `json:"id" bson:"_id"`
	SendAt    time.Time         `json:"sendAt" bson:"sendAt"`
	Tokens    []string          `json:"tokens" bson:"tokens"`
	Title     string            `json:"title" bson:"title"`
	Body      string            `json:"body" bson:"body"`
	Data      map[string]string `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
}

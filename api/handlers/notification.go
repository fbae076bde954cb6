package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/models"
	"github.com/unit-mercury/mercury-api/push"
)

// Notification exported for testing purposes
type Notification struct {
	DB   databases.NotificationDatabase
	UDB  databases.UserDatabase
	Push push.Notifier
}

// create writes a notification document and fans it out best-effort: a push
// to the receiver's device token and a message on their websocket stream.
// The receiver may be given as a uid or a dod; the stored receiver is always
// the uid. Delivery failures are logged, never surfaced to the caller.
func (n *Notification) create(ctx context.Context, notif models.Notification) error {
	receiver, err := n.UDB.FindOne(ctx, bson.M{"_id": notif.Receiver})
	if err != nil {
		receiver, err = n.UDB.FindOne(ctx, bson.M{"dod": notif.Receiver})
		if err != nil {
			return err
		}
	}
	notif.Receiver = receiver.UID

	if notif.NotificationID == "" {
		notif.NotificationID = uuid.New().String()
	}
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now().UTC()
	}

	if err := n.DB.InsertOne(ctx, notif); err != nil {
		return err
	}

	if receiver.FCMToken != "" {
		if err := n.Push.Send(ctx, []string{receiver.FCMToken}, notif.NotificationType, notif.SenderName, map[string]string{
			"type": notif.Type,
			"id":   notif.RefID,
		}); err != nil {
			zap.S().Errorw("failed to push notification",
				"receiver", receiver.UID,
				"error", err)
		}
	}

	sendNotificationToUser(receiver.UID, notif)
	return nil
}

// deleteByRef drops every notification that points at the given file or event
func (n *Notification) deleteByRef(ctx context.Context, refID string) error {
	_, err := n.DB.DeleteMany(ctx, bson.M{"id": refID})
	return err
}

// GetNotificationsHandler returns the caller's notifications, newest first
func (n *Notification) GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	limit64 := int64(getPageLimit(r))
	Page = getPage(Page, r)
	skip64 := int64(Page) * limit64

	filter := bson.M{"receiver": ident.UID}
	if read := r.URL.Query().Get("read"); read != "" {
		filter["read"] = read == "true"
	}
	if fileType := r.URL.Query().Get("file_type"); fileType != "" {
		filter["file_type"] = fileType
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"timestamp": -1})

	dbResp, err := n.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Notification{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ReadNotificationHandler marks a notification as read, receiver only
func (n *Notification) ReadNotificationHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	notificationID := mux.Vars(r)["notification_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := n.DB.FindOne(ctx, bson.M{"_id": notificationID})
	if err != nil {
		config.ErrorStatus("failed to get notification by ID", http.StatusNotFound, w, err)
		return
	}
	if dbResp.Receiver != ident.UID {
		config.ErrorStatus("caller is not the receiver", http.StatusUnauthorized, w, errNotPermitted)
		return
	}
	if dbResp.Read {
		config.ErrorStatus("notification already read", http.StatusBadRequest, w, errAlreadyRead)
		return
	}

	_, err = n.DB.UpdateOne(ctx, bson.M{"_id": notificationID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		config.ErrorStatus("failed to update notification", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.MessageResponse{Message: "notification marked as read"})
}

// DeleteNotificationHandler deletes a notification, receiver only
func (n *Notification) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	notificationID := mux.Vars(r)["notification_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := n.DB.FindOne(ctx, bson.M{"_id": notificationID})
	if err != nil {
		config.ErrorStatus("failed to get notification by ID", http.StatusNotFound, w, err)
		return
	}
	if dbResp.Receiver != ident.UID {
		config.ErrorStatus("caller is not the receiver", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	_, err = n.DB.DeleteOne(ctx, bson.M{"_id": notificationID})
	if err != nil {
		config.ErrorStatus("failed to delete notification", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.MessageResponse{Message: "notification deleted"})
}

// SendNotificationHandler pushes a manual notification to a list of users
func (n *Notification) SendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	uids := strings.Split(r.URL.Query().Get("uids"), ",")
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if body.Title == "" {
		config.ErrorStatus("missing notification title", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sent := 0
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		err := n.create(ctx, models.Notification{
			NotificationType: body.Title,
			Sender:           ident.UID,
			SenderName:       body.Body,
			Receiver:         uid,
			Type:             "manual",
		})
		if err != nil {
			zap.S().Warnw("failed to send manual notification",
				"receiver", uid,
				"error", err)
			continue
		}
		sent++
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "notifications sent",
		"sent":    strconv.Itoa(sent),
	})
}

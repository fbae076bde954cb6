package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/unit-mercury/mercury-api/api/handlers"
	dbmocks "github.com/unit-mercury/mercury-api/databases/mocks"
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
)

func TestNotification_ReadMarksRead(t *testing.T) {
	ndb := dbmocks.NewNotificationDatabase(t)

	ndb.On("FindOne", mock.Anything, bson.M{"_id": "notif-1"}).
		Return(&models.Notification{NotificationID: "notif-1", Receiver: "uid-1"}, nil)
	ndb.On("UpdateOne", mock.Anything, bson.M{"_id": "notif-1"},
		bson.M{"$set": bson.M{"read": true}}).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	n := &handlers.Notification{DB: ndb}

	req := authedRequest("PUT", "/notifications/read_notification/notif-1", nil, &identity.Identity{UID: "uid-1"})
	req = mux.SetURLVars(req, map[string]string{"notification_id": "notif-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(n.ReadNotificationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "notification marked as read")
}

func TestNotification_ReadAlreadyRead(t *testing.T) {
	ndb := dbmocks.NewNotificationDatabase(t)

	ndb.On("FindOne", mock.Anything, bson.M{"_id": "notif-1"}).
		Return(&models.Notification{NotificationID: "notif-1", Receiver: "uid-1", Read: true}, nil)

	n := &handlers.Notification{DB: ndb}

	req := authedRequest("PUT", "/notifications/read_notification/notif-1", nil, &identity.Identity{UID: "uid-1"})
	req = mux.SetURLVars(req, map[string]string{"notification_id": "notif-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(n.ReadNotificationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already read")
}

func TestNotification_ReadReceiverOnly(t *testing.T) {
	ndb := dbmocks.NewNotificationDatabase(t)

	ndb.On("FindOne", mock.Anything, bson.M{"_id": "notif-1"}).
		Return(&models.Notification{NotificationID: "notif-1", Receiver: "uid-1"}, nil)

	n := &handlers.Notification{DB: ndb}

	req := authedRequest("PUT", "/notifications/read_notification/notif-1", nil, &identity.Identity{UID: "uid-2"})
	req = mux.SetURLVars(req, map[string]string{"notification_id": "notif-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(n.ReadNotificationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNotification_DeleteReceiverOnly(t *testing.T) {
	ndb := dbmocks.NewNotificationDatabase(t)

	ndb.On("FindOne", mock.Anything, bson.M{"_id": "notif-1"}).
		Return(&models.Notification{NotificationID: "notif-1", Receiver: "uid-1"}, nil)

	n := &handlers.Notification{DB: ndb}

	req := authedRequest("DELETE", "/notifications/delete_notification/notif-1", nil, &identity.Identity{UID: "uid-2"})
	req = mux.SetURLVars(req, map[string]string{"notification_id": "notif-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(n.DeleteNotificationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNotification_GetNotificationsEmpty(t *testing.T) {
	ndb := dbmocks.NewNotificationDatabase(t)

	ndb.On("Find", mock.Anything, bson.M{"receiver": "uid-1"}, mock.Anything).
		Return(nil, nil)

	n := &handlers.Notification{DB: ndb}

	req := authedRequest("GET", "/notifications/get_notifications", nil, &identity.Identity{UID: "uid-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(n.GetNotificationsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

package handlers_test

import (
	"encoding/base64"
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
	pushmocks "github.com/unit-mercury/mercury-api/push/mocks"
)

func TestEvent_ConfirmMovesInviteeToConfirmed(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)
	ndb := dbmocks.NewNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	invitee := &models.User{UID: "invitee-1", Dod: "1111111111", Name: "SGT Park"}
	author := &models.User{UID: "author-1", Dod: "2222222222", Name: "CPT Lee"}

	udb.On("FindOne", mock.Anything, bson.M{"_id": "invitee-1"}).Return(invitee, nil)

	// one atomic statement pulls from invitees and pushes to confirmed
	edb.On("UpdateOne", mock.Anything,
		bson.M{"_id": "event-1", "invitees_dod": "1111111111"},
		bson.M{
			"$pull":     bson.M{"invitees_dod": "1111111111"},
			"$addToSet": bson.M{"confirmed_dod": "1111111111"},
		}).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	edb.On("FindOne", mock.Anything, bson.M{"_id": "event-1"}).
		Return(&models.Event{EventID: "event-1", Author: "author-1"}, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).Return(author, nil)

	var notif models.Notification
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).
		Run(func(args mock.Arguments) { notif = args.Get(1).(models.Notification) }).
		Return(nil)

	e := handlers.Event{
		DB:    edb,
		UDB:   udb,
		Notif: &handlers.Notification{DB: ndb, UDB: udb, Push: notifier},
	}

	req := authedRequest("POST", "/events/confirm_event/event-1", nil, &identity.Identity{UID: "invitee-1"})
	req = mux.SetURLVars(req, map[string]string{"event_id": "event-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ConfirmEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "event confirmed successfully")
	assert.Equal(t, models.NotificationEventConfirmed, notif.NotificationType)
	assert.Equal(t, "author-1", notif.Receiver)
}

func TestEvent_ConfirmNotInvited(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	stranger := &models.User{UID: "stranger-1", Dod: "9999999999"}
	udb.On("FindOne", mock.Anything, bson.M{"_id": "stranger-1"}).Return(stranger, nil)

	// no document matches, so nothing moved
	edb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	edb.On("FindOne", mock.Anything, bson.M{"_id": "event-1"}).
		Return(&models.Event{EventID: "event-1", Author: "author-1", InviteesDod: []string{"1111111111"}}, nil)

	e := handlers.Event{DB: edb, UDB: udb}

	req := authedRequest("POST", "/events/confirm_event/event-1", nil, &identity.Identity{UID: "stranger-1"})
	req = mux.SetURLVars(req, map[string]string{"event_id": "event-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ConfirmEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "caller was not invited")
}

func TestEvent_ConfirmUnknownEvent(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"_id": "invitee-1"}).
		Return(&models.User{UID: "invitee-1", Dod: "1111111111"}, nil)
	edb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	edb.On("FindOne", mock.Anything, bson.M{"_id": "missing"}).
		Return(nil, mongo.ErrNoDocuments)

	e := handlers.Event{DB: edb, UDB: udb}

	req := authedRequest("POST", "/events/confirm_event/missing", nil, &identity.Identity{UID: "invitee-1"})
	req = mux.SetURLVars(req, map[string]string{"event_id": "missing"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ConfirmEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEvent_GetEventStripsListsForInvitees(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"_id": "invitee-1"}).
		Return(&models.User{UID: "invitee-1", Dod: "1111111111"}, nil)
	edb.On("FindOne", mock.Anything, bson.M{"_id": "event-1"}).
		Return(&models.Event{
			EventID:      "event-1",
			Author:       "author-1",
			Title:        "PT formation",
			InviteesDod:  []string{"1111111111"},
			ConfirmedDod: []string{"2222222222"},
		}, nil)

	e := handlers.Event{DB: edb, UDB: udb}

	req := authedRequest("GET", "/events/get_event/event-1", nil, &identity.Identity{UID: "invitee-1"})
	req = mux.SetURLVars(req, map[string]string{"event_id": "event-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.GetEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "PT formation")
	assert.NotContains(t, rr.Body.String(), "invitees_dod")
	assert.NotContains(t, rr.Body.String(), "confirmed_dod")
}

func TestEvent_CreateMissingRequiredField(t *testing.T) {
	e := handlers.Event{}

	req := authedRequest("POST", "/events/create_event", map[string]interface{}{
		"title": "PT formation",
		// no starttime/endtime/type/organizer
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEvent_CreateNormalizesTimesToUTC(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).
		Return(&models.User{UID: "author-1", Dod: "1111111111", Name: "CPT Lee"}, nil)

	var created models.Event
	edb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Event")).
		Run(func(args mock.Arguments) { created = args.Get(1).(models.Event) }).
		Return(nil)

	e := handlers.Event{DB: edb, UDB: udb}

	// client sends local-offset timestamps; they must land in storage as UTC
	req := authedRequest("POST", "/events/create_event", map[string]interface{}{
		"title":     "PT formation",
		"starttime": "2026-09-10T09:30:00+02:00",
		"endtime":   "2026-09-10T11:00:00+02:00",
		"type":      "formation",
		"organizer": "CPT Lee",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "2026-09-10T07:30:00Z", created.Starttime)
	assert.Equal(t, "2026-09-10T09:00:00Z", created.Endtime)
}

func TestEvent_CreateRejectsMalformedStarttime(t *testing.T) {
	e := handlers.Event{}

	req := authedRequest("POST", "/events/create_event", map[string]interface{}{
		"title":     "PT formation",
		"starttime": "next tuesday",
		"endtime":   "2026-09-10T11:00:00Z",
		"type":      "formation",
		"organizer": "CPT Lee",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateEventHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid starttime")
}

func TestEvent_UploadBattleAssembly(t *testing.T) {
	edb := dbmocks.NewEventDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).
		Return(&models.User{UID: "author-1", Dod: "1111111111", Name: "MSG Cho"}, nil)

	var created []models.Event
	edb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Event")).
		Run(func(args mock.Arguments) { created = append(created, args.Get(1).(models.Event)) }).
		Return(nil)

	e := handlers.Event{DB: edb, UDB: udb}

	csv := "UNIT,EVENT TYPE,LOCATION,MUTA,TRAINING EVENTS,REMARKS,START DATE,START TIME,END DATE,END TIME\n" +
		"1-100 IN BN,IDT,Camp Casey,4,Weapons Qualification,Bring full kit,7-Aug-26,7:AM,8-Aug-26,4:PM\n" +
		"1-100 IN BN,IDT,Camp Casey,2,Land Navigation,,12-Sep-26,12:AM,12-Sep-26,12:PM\n"

	req := authedRequest("POST", "/events/upload_battle_assembly", map[string]interface{}{
		"filename": "drill_schedule.csv",
		"csv_file": base64.StdEncoding.EncodeToString([]byte(csv)),
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.UploadBattleAssemblyHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "battle assembly schedule uploaded successfully")

	if assert.Len(t, created, 2) {
		first := created[0]
		assert.Equal(t, "Battle Assembly", first.Title)
		assert.Equal(t, "Training Drills", first.Description)
		assert.True(t, first.Period)
		assert.Equal(t, "MSG Cho", first.Organizer)
		assert.Equal(t, "author-1", first.Author)
		assert.Equal(t, "2026-08-07T07:00:00Z", first.Starttime)
		assert.Equal(t, "2026-08-08T16:00:00Z", first.Endtime)
		assert.Equal(t, "1-100 IN BN", first.Unit)
		assert.Equal(t, "Camp Casey", first.Location)
		assert.Equal(t, "Weapons Qualification", first.TrainingEvents)

		// 12:AM is midnight, 12:PM is noon
		assert.Equal(t, "2026-09-12T00:00:00Z", created[1].Starttime)
		assert.Equal(t, "2026-09-12T12:00:00Z", created[1].Endtime)
	}
}

func TestEvent_UploadBattleAssemblyRejectsNonCSV(t *testing.T) {
	e := handlers.Event{}

	req := authedRequest("POST", "/events/upload_battle_assembly", map[string]interface{}{
		"filename": "drill_schedule.xlsx",
		"csv_file": base64.StdEncoding.EncodeToString([]byte("UNIT\n")),
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.UploadBattleAssemblyHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

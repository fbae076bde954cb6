package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/api/handlers"
	dbmocks "github.com/unit-mercury/mercury-api/databases/mocks"
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
	pushmocks "github.com/unit-mercury/mercury-api/push/mocks"
	storagemocks "github.com/unit-mercury/mercury-api/storage/mocks"
)

func authedRequest(method, target string, body interface{}, ident *identity.Identity) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	return req.WithContext(api.ContextWithIdentity(context.Background(), ident))
}

func TestFile_UploadStandardForm(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)
	ndb := dbmocks.NewNotificationDatabase(t)
	store := storagemocks.NewObjectStore(t)
	notifier := pushmocks.NewNotifier(t)

	author := &models.User{UID: "author-1", Dod: "1111111111", Name: "SGT Park", Signature: "signature/author-1"}
	reviewer := &models.User{UID: "reviewer-1", Dod: "2222222222", Name: "CPT Lee"}

	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).Return(author, nil)
	store.On("Upload", mock.Anything, mock.MatchedBy(func(path string) bool {
		return strings.HasPrefix(path, "files/")
	}), mock.Anything).Return("https://cdn.example.com/raw/files/abc", nil)

	var created models.File
	fdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.File")).
		Run(func(args mock.Arguments) { created = args.Get(1).(models.File) }).
		Return(nil)
	udb.On("UpdateOne", mock.Anything, bson.M{"_id": "author-1"}, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	// notification fan-out: the reviewer is addressed by dod
	udb.On("FindOne", mock.Anything, bson.M{"_id": "2222222222"}).Return(nil, mongo.ErrNoDocuments)
	udb.On("FindOne", mock.Anything, bson.M{"dod": "2222222222"}).Return(reviewer, nil)
	var notif models.Notification
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).
		Run(func(args mock.Arguments) { notif = args.Get(1).(models.Notification) }).
		Return(nil)

	f := handlers.File{
		DB:    fdb,
		UDB:   udb,
		Store: store,
		Notif: &handlers.Notification{DB: ndb, UDB: udb, Push: notifier},
	}

	req := authedRequest("POST", "/files/upload_file", map[string]interface{}{
		"file":     base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")),
		"filename": "leave_request.pdf",
		"filetype": "standard_form",
		"reviewer": "2222222222",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.UploadFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "file uploaded successfully")

	assert.Equal(t, models.StatusSubmitted, created.Status)
	assert.True(t, created.ReviewerVisible, "no recommender means the reviewer sees it at once")
	assert.Equal(t, "author-1", created.Author)
	assert.Equal(t, "2222222222", created.Reviewer)

	assert.Equal(t, models.NotificationReviewFile, notif.NotificationType)
	assert.Equal(t, "reviewer-1", notif.Receiver, "receiver dod resolves to uid")
}

func TestFile_UploadRecommenderGatesReviewer(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)
	ndb := dbmocks.NewNotificationDatabase(t)
	store := storagemocks.NewObjectStore(t)
	notifier := pushmocks.NewNotifier(t)

	author := &models.User{UID: "author-1", Dod: "1111111111", Name: "SGT Park", Signature: "signature/author-1"}
	recommender := &models.User{UID: "rec-1", Dod: "3333333333", Name: "SFC Kim"}

	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).Return(author, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "3333333333"}).Return(nil, mongo.ErrNoDocuments)
	udb.On("FindOne", mock.Anything, bson.M{"dod": "3333333333"}).Return(recommender, nil)
	udb.On("UpdateOne", mock.Anything, bson.M{"_id": "author-1"}, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)
	store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return("https://cdn.example.com/raw/files/abc", nil)

	var created models.File
	fdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.File")).
		Run(func(args mock.Arguments) { created = args.Get(1).(models.File) }).
		Return(nil)
	var notif models.Notification
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).
		Run(func(args mock.Arguments) { notif = args.Get(1).(models.Notification) }).
		Return(nil)

	f := handlers.File{
		DB:    fdb,
		UDB:   udb,
		Store: store,
		Notif: &handlers.Notification{DB: ndb, UDB: udb, Push: notifier},
	}

	req := authedRequest("POST", "/files/upload_file", map[string]interface{}{
		"file":        base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")),
		"filename":    "award_request.pdf",
		"filetype":    "request_form",
		"reviewer":    "2222222222",
		"recommender": "3333333333",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.UploadFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.False(t, created.ReviewerVisible, "reviewer is gated until the recommendation lands")
	assert.Equal(t, models.NotificationRecommendFile, notif.NotificationType)
	assert.Equal(t, "rec-1", notif.Receiver)
}

func TestFile_UploadRejectsNonPDF(t *testing.T) {
	f := handlers.File{}
	req := authedRequest("POST", "/files/upload_file", map[string]interface{}{
		"file":     base64.StdEncoding.EncodeToString([]byte("hello")),
		"filename": "notes.txt",
		"filetype": "standard_form",
		"reviewer": "2222222222",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.UploadFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestFile_UploadRecommenderOnlyForRequestForms(t *testing.T) {
	f := handlers.File{}
	req := authedRequest("POST", "/files/upload_file", map[string]interface{}{
		"file":        base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")),
		"filename":    "leave_request.pdf",
		"filetype":    "standard_form",
		"reviewer":    "2222222222",
		"recommender": "3333333333",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.UploadFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "recommender only allowed for request forms")
}

func TestFile_ReviewReject(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)
	ndb := dbmocks.NewNotificationDatabase(t)
	store := storagemocks.NewObjectStore(t)
	notifier := pushmocks.NewNotifier(t)

	file := &models.File{
		ID:              "file-1",
		Author:          "author-1",
		Filetype:        models.FiletypeStandardForm,
		Status:          models.StatusSubmitted,
		Reviewer:        "2222222222",
		ReviewerVisible: true,
	}
	reviewer := &models.User{UID: "reviewer-1", Dod: "2222222222", Name: "CPT Lee"}
	author := &models.User{UID: "author-1", Dod: "1111111111", Name: "SGT Park"}

	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "reviewer-1"}).Return(reviewer, nil)
	fdb.On("UpdateOne", mock.Anything, bson.M{"_id": "file-1"}, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).Return(author, nil)

	var notif models.Notification
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).
		Run(func(args mock.Arguments) { notif = args.Get(1).(models.Notification) }).
		Return(nil)

	f := handlers.File{
		DB:    fdb,
		UDB:   udb,
		Store: store,
		Notif: &handlers.Notification{DB: ndb, UDB: udb, Push: notifier},
	}

	req := authedRequest("PUT", "/files/review_file", map[string]interface{}{
		"file_id":  "file-1",
		"decision": models.StatusRejected,
		"comment":  "wrong form revision",
	}, &identity.Identity{UID: "reviewer-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.ReviewFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.NotificationFileRejected, notif.NotificationType)
	assert.Equal(t, "author-1", notif.Receiver)
}

func TestFile_ReviewFinalizedFileRejected(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:              "file-1",
		Status:          models.StatusRejected,
		Reviewer:        "2222222222",
		ReviewerVisible: true,
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "reviewer-1"}).
		Return(&models.User{UID: "reviewer-1", Dod: "2222222222"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/review_file", map[string]interface{}{
		"file_id":  "file-1",
		"decision": models.StatusApproved,
	}, &identity.Identity{UID: "reviewer-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.ReviewFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file already finalized")
}

func TestFile_ReviewUnsupportedDecision(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:              "file-1",
		Status:          models.StatusSubmitted,
		Reviewer:        "2222222222",
		ReviewerVisible: true,
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "reviewer-1"}).
		Return(&models.User{UID: "reviewer-1", Dod: "2222222222"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/review_file", map[string]interface{}{
		"file_id":  "file-1",
		"decision": 9,
	}, &identity.Identity{UID: "reviewer-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.ReviewFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unsupported decision type")
}

func TestFile_ReviewNotAssignedReviewer(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:              "file-1",
		Status:          models.StatusSubmitted,
		Reviewer:        "2222222222",
		ReviewerVisible: true,
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "stranger-1"}).
		Return(&models.User{UID: "stranger-1", Dod: "9999999999"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/review_file", map[string]interface{}{
		"file_id":  "file-1",
		"decision": models.StatusApproved,
	}, &identity.Identity{UID: "stranger-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.ReviewFileHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestFile_UpdateFinalizedFileRejected(t *testing.T) {
	for _, status := range []int{models.StatusApproved, models.StatusRejected} {
		fdb := dbmocks.NewFileDatabase(t)

		file := &models.File{
			ID:     "file-1",
			Author: "author-1",
			Status: status,
		}
		fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)

		f := handlers.File{DB: fdb}

		req := authedRequest("PUT", "/files/update_file", map[string]interface{}{
			"file_id":  "file-1",
			"filename": "leave_request_v2.pdf",
		}, &identity.Identity{UID: "author-1"})

		rr := httptest.NewRecorder()
		http.HandlerFunc(f.UpdateFileHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "file can no longer be edited")
	}
}

func TestFile_GiveRecommendation(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)
	ndb := dbmocks.NewNotificationDatabase(t)
	notifier := pushmocks.NewNotifier(t)

	file := &models.File{
		ID:          "file-1",
		Author:      "author-1",
		Filetype:    models.FiletypeRequestForm,
		Status:      models.StatusSubmitted,
		Reviewer:    "2222222222",
		Recommender: "3333333333",
	}
	recommender := &models.User{UID: "rec-1", Dod: "3333333333", Name: "SFC Kim"}
	reviewer := &models.User{UID: "reviewer-1", Dod: "2222222222", Name: "CPT Lee"}
	author := &models.User{UID: "author-1", Dod: "1111111111", Name: "SGT Park"}

	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "rec-1"}).Return(recommender, nil)

	var update bson.M
	fdb.On("UpdateOne", mock.Anything, bson.M{"_id": "file-1"}, mock.Anything).
		Run(func(args mock.Arguments) { update = args.Get(2).(bson.M) }).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	// notification fan-out: the author is addressed by uid, the reviewer by dod
	udb.On("FindOne", mock.Anything, bson.M{"_id": "author-1"}).Return(author, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "2222222222"}).Return(nil, mongo.ErrNoDocuments)
	udb.On("FindOne", mock.Anything, bson.M{"dod": "2222222222"}).Return(reviewer, nil)

	var notifs []models.Notification
	ndb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Notification")).
		Run(func(args mock.Arguments) { notifs = append(notifs, args.Get(1).(models.Notification)) }).
		Return(nil)

	f := handlers.File{
		DB:    fdb,
		UDB:   udb,
		Notif: &handlers.Notification{DB: ndb, UDB: udb, Push: notifier},
	}

	req := authedRequest("PUT", "/files/give_recommendation", map[string]interface{}{
		"file_id":     "file-1",
		"recommended": true,
		"comment":     "solid request, endorse",
	}, &identity.Identity{UID: "rec-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.GiveRecommendationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "recommendation recorded successfully")

	set := update["$set"].(bson.M)
	assert.Equal(t, models.StatusRecommended, set["status"])
	assert.Equal(t, true, set["reviewer_visible"], "recommendation opens the file to the reviewer")
	assert.Equal(t, true, set["is_recommended"])
	assert.Equal(t, "solid request, endorse", set["comment"])

	if assert.Len(t, notifs, 2) {
		assert.Equal(t, models.NotificationFileRecommended, notifs[0].NotificationType)
		assert.Equal(t, "author-1", notifs[0].Receiver)
		assert.Equal(t, models.NotificationReviewFile, notifs[1].NotificationType)
		assert.Equal(t, "reviewer-1", notifs[1].Receiver, "receiver dod resolves to uid")
	}
}

func TestFile_GiveRecommendationNotAssigned(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:          "file-1",
		Filetype:    models.FiletypeRequestForm,
		Status:      models.StatusSubmitted,
		Recommender: "3333333333",
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "stranger-1"}).
		Return(&models.User{UID: "stranger-1", Dod: "9999999999"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/give_recommendation", map[string]interface{}{
		"file_id":     "file-1",
		"recommended": true,
	}, &identity.Identity{UID: "stranger-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.GiveRecommendationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestFile_GiveRecommendationStandardFormRejected(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:          "file-1",
		Filetype:    models.FiletypeStandardForm,
		Status:      models.StatusSubmitted,
		Recommender: "3333333333",
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "rec-1"}).
		Return(&models.User{UID: "rec-1", Dod: "3333333333"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/give_recommendation", map[string]interface{}{
		"file_id":     "file-1",
		"recommended": true,
	}, &identity.Identity{UID: "rec-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.GiveRecommendationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file is not a request form")
}

func TestFile_GiveRecommendationWrongStatus(t *testing.T) {
	fdb := dbmocks.NewFileDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	file := &models.File{
		ID:          "file-1",
		Filetype:    models.FiletypeRequestForm,
		Status:      models.StatusRecommended,
		Recommender: "3333333333",
	}
	fdb.On("FindOne", mock.Anything, bson.M{"_id": "file-1"}).Return(file, nil)
	udb.On("FindOne", mock.Anything, bson.M{"_id": "rec-1"}).
		Return(&models.User{UID: "rec-1", Dod: "3333333333"}, nil)

	f := handlers.File{DB: fdb, UDB: udb}

	req := authedRequest("PUT", "/files/give_recommendation", map[string]interface{}{
		"file_id":     "file-1",
		"recommended": false,
	}, &identity.Identity{UID: "rec-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(f.GiveRecommendationHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file is not awaiting recommendation")
}

package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
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
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
	"github.com/unit-mercury/mercury-api/storage"
)

// File exported for testing purposes
type File struct {
	DB    databases.FileDatabase
	UDB   databases.UserDatabase
	Store storage.ObjectStore
	Notif *Notification
}

type uploadFileRequest struct {
	File        string `json:"file"`
	Filename    string `json:"filename"`
	Filetype    string `json:"filetype"`
	Reviewer    string `json:"reviewer"`
	Recommender string `json:"recommender"`
	Signature   string `json:"signature"`
}

// UploadFileHandler submits a new file into the review workflow. The blob is
// written before the metadata so a failed upload never leaves a dangling
// document.
func (f File) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req uploadFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	if req.File == "" {
		config.ErrorStatus("missing file content", http.StatusBadRequest, w, errMissingField)
		return
	}
	if !strings.HasSuffix(strings.ToLower(req.Filename), ".pdf") {
		config.ErrorStatus("unsupported file format", http.StatusUnsupportedMediaType, w, fmt.Errorf("filename %q is not a pdf", req.Filename))
		return
	}
	if !models.ValidFiletype(req.Filetype) {
		config.ErrorStatus("unsupported filetype", http.StatusBadRequest, w, fmt.Errorf("filetype %q", req.Filetype))
		return
	}
	if req.Reviewer == "" {
		config.ErrorStatus("missing reviewer", http.StatusBadRequest, w, errMissingField)
		return
	}
	if req.Recommender != "" && req.Filetype != models.FiletypeRequestForm {
		config.ErrorStatus("recommender only allowed for request forms", http.StatusBadRequest, w, fmt.Errorf("filetype %q", req.Filetype))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	author, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	if author.Signature == "" && req.Signature == "" {
		config.ErrorStatus("missing signature", http.StatusBadRequest, w, errMissingField)
		return
	}
	if req.Signature != "" {
		sig, err := decodeBase64(req.Signature)
		if err != nil {
			config.ErrorStatus("failed to decode signature", http.StatusBadRequest, w, err)
			return
		}
		sigPath := "signature/" + ident.UID
		sigURL, err := f.Store.Upload(ctx, sigPath, sig)
		if err != nil {
			config.ErrorStatus("failed to store signature", http.StatusInternalServerError, w, err)
			return
		}
		// keep the signature on the profile for reuse
		_, err = f.UDB.UpdateOne(ctx, bson.M{"_id": ident.UID},
			bson.M{"$set": bson.M{"signature": sigPath, "signature_url": sigURL}})
		if err != nil {
			config.ErrorStatus("failed to persist signature", http.StatusInternalServerError, w, err)
			return
		}
	}

	content, err := decodeBase64(req.File)
	if err != nil {
		config.ErrorStatus("failed to decode file content", http.StatusBadRequest, w, err)
		return
	}

	fileID := uuid.New().String()
	contentURL, err := f.Store.Upload(ctx, "files/"+fileID, content)
	if err != nil {
		config.ErrorStatus("failed to store file content", http.StatusInternalServerError, w, err)
		return
	}

	file := models.File{
		ID:              fileID,
		Author:          ident.UID,
		Filename:        req.Filename,
		Filetype:        req.Filetype,
		Status:          models.StatusSubmitted,
		Reviewer:        req.Reviewer,
		Recommender:     req.Recommender,
		ReviewerVisible: req.Recommender == "",
		ContentURL:      contentURL,
		Timestamp:       time.Now().UTC(),
	}
	if err := f.DB.InsertOne(ctx, file); err != nil {
		config.ErrorStatus("failed to create file", http.StatusInternalServerError, w, err)
		return
	}

	_, err = f.UDB.UpdateOne(ctx, bson.M{"_id": ident.UID}, bson.M{"$addToSet": bson.M{"files": fileID}})
	if err != nil {
		zap.S().Errorw("failed to add file to author profile",
			"file", fileID,
			"error", err)
	}

	notif := models.Notification{
		Sender:     ident.UID,
		SenderName: author.Name,
		Type:       "file",
		FileType:   file.Filetype,
		RefID:      fileID,
	}
	if req.Recommender != "" {
		notif.NotificationType = models.NotificationRecommendFile
		notif.Receiver = req.Recommender
	} else {
		notif.NotificationType = models.NotificationReviewFile
		notif.Receiver = req.Reviewer
	}
	if err := f.Notif.create(ctx, notif); err != nil {
		zap.S().Errorw("failed to notify on upload",
			"file", fileID,
			"error", err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "file uploaded successfully",
		"id":      fileID,
	})
}

// GetFileHandler returns a file's metadata and content. Only the author, the
// assigned reviewer or recommender, and admins may fetch it.
func (f File) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	fileID := mux.Vars(r)["file_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	file, err := f.DB.FindOne(ctx, bson.M{"_id": fileID})
	if err != nil {
		config.ErrorStatus("failed to get file by ID", http.StatusNotFound, w, err)
		return
	}

	if !f.canAccess(ctx, ident, file) {
		config.ErrorStatus("caller does not have access to this file", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	content, err := f.Store.Download(ctx, file.ContentURL)
	if err != nil {
		config.ErrorStatus("file content missing", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"metadata": file,
		"file":     base64.StdEncoding.EncodeToString(content),
	})
}

type reviewFileRequest struct {
	FileID   string `json:"file_id"`
	Decision int    `json:"decision"`
	Comment  string `json:"comment"`
	File     string `json:"file"`
}

// ReviewFileHandler records the reviewer's decision: resubmit, approve, or
// reject. Approve and reject are terminal.
func (f File) ReviewFileHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req reviewFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	file, err := f.DB.FindOne(ctx, bson.M{"_id": req.FileID})
	if err != nil {
		config.ErrorStatus("failed to get file by ID", http.StatusNotFound, w, err)
		return
	}

	caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}
	if file.Reviewer != caller.Dod && !ident.Claims.Admin {
		config.ErrorStatus("caller is not the assigned reviewer", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	if !models.ValidDecision(req.Decision) {
		config.ErrorStatus("unsupported decision type", http.StatusBadRequest, w, fmt.Errorf("decision %d", req.Decision))
		return
	}
	if !file.Editable() {
		config.ErrorStatus("file already finalized", http.StatusBadRequest, w, fmt.Errorf("status %d", file.Status))
		return
	}
	if !file.ReviewerVisible {
		config.ErrorStatus("file is awaiting recommendation", http.StatusBadRequest, w, fmt.Errorf("file %s not reviewer visible", file.ID))
		return
	}

	update := bson.M{
		"status":    req.Decision,
		"comment":   req.Comment,
		"timestamp": time.Now().UTC(),
	}
	if req.File != "" {
		content, err := decodeBase64(req.File)
		if err != nil {
			config.ErrorStatus("failed to decode file content", http.StatusBadRequest, w, err)
			return
		}
		contentURL, err := f.Store.Upload(ctx, "files/"+file.ID, content)
		if err != nil {
			config.ErrorStatus("failed to store file content", http.StatusInternalServerError, w, err)
			return
		}
		update["content_url"] = contentURL
	}

	_, err = f.DB.UpdateOne(ctx, bson.M{"_id": file.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update file", http.StatusInternalServerError, w, err)
		return
	}

	notifType := models.NotificationResubmitFile
	switch req.Decision {
	case models.StatusApproved:
		notifType = models.NotificationFileApproved
	case models.StatusRejected:
		notifType = models.NotificationFileRejected
	}
	err = f.Notif.create(ctx, models.Notification{
		NotificationType: notifType,
		Sender:           ident.UID,
		SenderName:       caller.Name,
		Receiver:         file.Author,
		Type:             "file",
		FileType:         file.Filetype,
		RefID:            file.ID,
	})
	if err != nil {
		zap.S().Errorw("failed to notify author of decision",
			"file", file.ID,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "file reviewed successfully",
		"status":  strconv.Itoa(req.Decision),
	})
}

type recommendationRequest struct {
	FileID      string `json:"file_id"`
	Recommended bool   `json:"recommended"`
	Comment     string `json:"comment"`
	File        string `json:"file"`
}

// GiveRecommendationHandler records the recommender's verdict on a request
// form and opens the file to the reviewer
func (f File) GiveRecommendationHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	file, err := f.DB.FindOne(ctx, bson.M{"_id": req.FileID})
	if err != nil {
		config.ErrorStatus("failed to get file by ID", http.StatusNotFound, w, err)
		return
	}

	caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}
	if file.Recommender != caller.Dod {
		config.ErrorStatus("caller is not the assigned recommender", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	if file.Filetype != models.FiletypeRequestForm {
		config.ErrorStatus("file is not a request form", http.StatusBadRequest, w, fmt.Errorf("filetype %q", file.Filetype))
		return
	}
	if file.Status != models.StatusSubmitted && file.Status != models.StatusResubmitRequest {
		config.ErrorStatus("file is not awaiting recommendation", http.StatusBadRequest, w, fmt.Errorf("status %d", file.Status))
		return
	}

	update := bson.M{
		"is_recommended":   req.Recommended,
		"status":           models.StatusRecommended,
		"reviewer_visible": true,
		"comment":          req.Comment,
		"timestamp":        time.Now().UTC(),
	}
	if req.File != "" {
		content, err := decodeBase64(req.File)
		if err != nil {
			config.ErrorStatus("failed to decode file content", http.StatusBadRequest, w, err)
			return
		}
		contentURL, err := f.Store.Upload(ctx, "files/"+file.ID, content)
		if err != nil {
			config.ErrorStatus("failed to store file content", http.StatusInternalServerError, w, err)
			return
		}
		update["content_url"] = contentURL
	}

	_, err = f.DB.UpdateOne(ctx, bson.M{"_id": file.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update file", http.StatusInternalServerError, w, err)
		return
	}

	authorNotif := models.NotificationFileRecommended
	if !req.Recommended {
		authorNotif = models.NotificationFileNotRecommended
	}
	for _, notif := range []models.Notification{
		{
			NotificationType: authorNotif,
			Receiver:         file.Author,
		},
		{
			NotificationType: models.NotificationReviewFile,
			Receiver:         file.Reviewer,
		},
	} {
		notif.Sender = ident.UID
		notif.SenderName = caller.Name
		notif.Type = "file"
		notif.FileType = file.Filetype
		notif.RefID = file.ID
		if err := f.Notif.create(ctx, notif); err != nil {
			zap.S().Errorw("failed to notify on recommendation",
				"file", file.ID,
				"error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "recommendation recorded successfully",
	})
}

type updateFileRequest struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	File        string `json:"file"`
	Recommender string `json:"recommender"`
}

// UpdateFileHandler lets the author revise a file that has not reached a
// terminal decision. Status is never changed here; changing the recommender
// resets the recommendation gate.
func (f File) UpdateFileHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req updateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	file, err := f.DB.FindOne(ctx, bson.M{"_id": req.FileID})
	if err != nil {
		config.ErrorStatus("failed to get file by ID", http.StatusNotFound, w, err)
		return
	}

	if file.Author != ident.UID {
		config.ErrorStatus("caller is not the author", http.StatusUnauthorized, w, errNotPermitted)
		return
	}
	if !file.Editable() {
		config.ErrorStatus("file can no longer be edited", http.StatusBadRequest, w, fmt.Errorf("status %d", file.Status))
		return
	}

	update := bson.M{"timestamp": time.Now().UTC()}
	if req.Filename != "" {
		if !strings.HasSuffix(strings.ToLower(req.Filename), ".pdf") {
			config.ErrorStatus("unsupported file format", http.StatusUnsupportedMediaType, w, fmt.Errorf("filename %q is not a pdf", req.Filename))
			return
		}
		update["filename"] = req.Filename
	}
	if req.File != "" {
		content, err := decodeBase64(req.File)
		if err != nil {
			config.ErrorStatus("failed to decode file content", http.StatusBadRequest, w, err)
			return
		}
		contentURL, err := f.Store.Upload(ctx, "files/"+file.ID, content)
		if err != nil {
			config.ErrorStatus("failed to store file content", http.StatusInternalServerError, w, err)
			return
		}
		update["content_url"] = contentURL
	}
	if req.Recommender != "" {
		if file.Filetype != models.FiletypeRequestForm {
			config.ErrorStatus("recommender only allowed for request forms", http.StatusBadRequest, w, fmt.Errorf("filetype %q", file.Filetype))
			return
		}
		update["recommender"] = req.Recommender
		update["reviewer_visible"] = false
		update["is_recommended"] = false
	}

	_, err = f.DB.UpdateOne(ctx, bson.M{"_id": file.ID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update file", http.StatusInternalServerError, w, err)
		return
	}

	if req.Recommender != "" {
		caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
		if err == nil {
			err = f.Notif.create(ctx, models.Notification{
				NotificationType: models.NotificationRecommendFile,
				Sender:           ident.UID,
				SenderName:       caller.Name,
				Receiver:         req.Recommender,
				Type:             "file",
				FileType:         file.Filetype,
				RefID:            file.ID,
			})
		}
		if err != nil {
			zap.S().Errorw("failed to notify new recommender",
				"file", file.ID,
				"error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "file updated successfully",
	})
}

// DeleteFileHandler deletes a file and its blob. A missing blob is tolerated;
// a missing document is a 404.
func (f File) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}
	fileID := mux.Vars(r)["file_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	file, err := f.DB.FindOne(ctx, bson.M{"_id": fileID})
	if err != nil {
		config.ErrorStatus("failed to get file by ID", http.StatusNotFound, w, err)
		return
	}

	if !f.canAccess(ctx, ident, file) {
		config.ErrorStatus("caller does not have access to this file", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	if err := f.Store.Delete(ctx, "files/"+file.ID); err != nil {
		zap.S().Warnw("failed to delete file blob",
			"file", file.ID,
			"error", err)
	}

	if _, err := f.DB.DeleteOne(ctx, bson.M{"_id": file.ID}); err != nil {
		config.ErrorStatus("failed to delete file", http.StatusInternalServerError, w, err)
		return
	}

	_, err = f.UDB.UpdateOne(ctx, bson.M{"_id": file.Author}, bson.M{"$pull": bson.M{"files": file.ID}})
	if err != nil {
		zap.S().Errorw("failed to remove file from author profile",
			"file", file.ID,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "file deleted successfully",
	})
}

// GetUserFilesHandler returns the caller's own files, newest first
func (f File) GetUserFilesHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	filter := bson.M{"author": ident.UID}
	if status := r.URL.Query().Get("status"); status != "" {
		s, err := strconv.Atoi(status)
		if err != nil {
			config.ErrorStatus("failed to parse status", http.StatusBadRequest, w, err)
			return
		}
		filter["status"] = s
	}
	if filetype := r.URL.Query().Get("filetype"); filetype != "" {
		filter["filetype"] = filetype
	}

	f.listFiles(w, r, filter)
}

// GetReviewFilesHandler returns files awaiting the caller's review. Files
// still gated behind a recommender are excluded; admins see everything.
func (f File) GetReviewFilesHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{}
	if !ident.Claims.Admin {
		caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
		if err != nil {
			config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
			return
		}
		filter["reviewer"] = caller.Dod
		filter["reviewer_visible"] = true
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s, err := strconv.Atoi(status)
		if err != nil {
			config.ErrorStatus("failed to parse status", http.StatusBadRequest, w, err)
			return
		}
		filter["status"] = s
	}
	if filetype := r.URL.Query().Get("filetype"); filetype != "" {
		filter["filetype"] = filetype
	}

	f.listFiles(w, r, filter)
}

// GetRecommendFilesHandler returns request forms assigned to the caller as
// recommender that are still in flight
func (f File) GetRecommendFilesHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	filter := bson.M{
		"recommender": caller.Dod,
		"status": bson.M{"$in": []int{
			models.StatusSubmitted,
			models.StatusRecommended,
			models.StatusResubmitRequest,
		}},
	}

	f.listFiles(w, r, filter)
}

func (f File) listFiles(w http.ResponseWriter, r *http.Request, filter bson.M) {
	limit64 := int64(getPageLimit(r))
	Page = getPage(Page, r)
	skip64 := int64(Page) * limit64

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"timestamp": -1})

	dbResp, err := f.DB.Find(ctx, filter, opts)
	if err != nil {
		config.ErrorStatus("failed to get files", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.File{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// canAccess reports whether the caller is the author, the assigned reviewer
// or recommender, or an admin
func (f File) canAccess(ctx context.Context, ident *identity.Identity, file *models.File) bool {
	if ident.Claims.Admin || file.Author == ident.UID {
		return true
	}
	caller, err := f.UDB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		return false
	}
	return file.Reviewer == caller.Dod || (file.Recommender != "" && file.Recommender == caller.Dod)
}

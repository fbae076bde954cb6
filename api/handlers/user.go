package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

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

// User exported for testing purposes
type User struct {
	DB       databases.UserDatabase
	Store    storage.ObjectStore
	Provider identity.Provider
}

type registerUserRequest struct {
	Dod            string `json:"dod"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Rank           string `json:"rank"`
	Grade          string `json:"grade"`
	Branch         string `json:"branch"`
	Superior       string `json:"superior"`
	UnitName       string `json:"unit_name"`
	Description    string `json:"description"`
	ProfilePicture string `json:"profile_picture"`
	FCMToken       string `json:"FCMToken"`
}

// RegisterUserHandler creates the caller's profile. The uid and email come
// from the verified token, never the body.
func (u User) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Dod == "" || req.Name == "" {
		config.ErrorStatus("missing dod or name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": ident.UID}); err == nil {
		config.ErrorStatus("user already registered", http.StatusBadRequest, w, fmt.Errorf("uid %s exists", ident.UID))
		return
	}

	picturePath := models.DefaultProfilePicture
	pictureURL := ""
	if req.ProfilePicture != "" {
		picture, err := decodeBase64(req.ProfilePicture)
		if err != nil {
			config.ErrorStatus("failed to decode profile picture", http.StatusBadRequest, w, err)
			return
		}
		picturePath = "profile_picture/" + ident.UID
		pictureURL, err = u.Store.Upload(ctx, picturePath, picture)
		if err != nil {
			config.ErrorStatus("failed to store profile picture", http.StatusInternalServerError, w, err)
			return
		}
	}

	user := models.User{
		UID:               ident.UID,
		Dod:               req.Dod,
		Name:              req.Name,
		Email:             ident.Email,
		Phone:             req.Phone,
		Rank:              req.Rank,
		Grade:             req.Grade,
		Branch:            req.Branch,
		Superior:          req.Superior,
		UnitName:          req.UnitName,
		Description:       req.Description,
		Files:             []string{},
		ProfilePicture:    picturePath,
		ProfilePictureURL: pictureURL,
		FCMToken:          req.FCMToken,
		Timestamp:         time.Now().UTC(),
	}
	if err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user registered successfully",
		"uid":     ident.UID,
	})
}

type updateUserRequest struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Rank           string `json:"rank"`
	Grade          string `json:"grade"`
	Superior       string `json:"superior"`
	UnitName       string `json:"unit_name"`
	Description    string `json:"description"`
	FCMToken       string `json:"FCMToken"`
	Signature      string `json:"signature"`
	ProfilePicture string `json:"profile_picture"`
}

// UpdateUserHandler patches the caller's profile. Admins may patch any
// profile by supplying a uid.
func (u User) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	targetUID := ident.UID
	if req.UID != "" && req.UID != ident.UID {
		if !ident.Claims.Admin {
			config.ErrorStatus("only admins may update other users", http.StatusUnauthorized, w, errNotPermitted)
			return
		}
		targetUID = req.UID
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := u.DB.FindOne(ctx, bson.M{"_id": targetUID}); err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	update := bson.M{"timestamp": time.Now().UTC()}
	for field, value := range map[string]string{
		"name":        req.Name,
		"phone":       req.Phone,
		"rank":        req.Rank,
		"grade":       req.Grade,
		"superior":    req.Superior,
		"unit_name":   req.UnitName,
		"description": req.Description,
		"FCMToken":    req.FCMToken,
	} {
		if value != "" {
			update[field] = value
		}
	}

	if req.Signature != "" {
		sig, err := decodeBase64(req.Signature)
		if err != nil {
			config.ErrorStatus("failed to decode signature", http.StatusBadRequest, w, err)
			return
		}
		sigPath := "signature/" + targetUID
		sigURL, err := u.Store.Upload(ctx, sigPath, sig)
		if err != nil {
			config.ErrorStatus("failed to store signature", http.StatusInternalServerError, w, err)
			return
		}
		update["signature"] = sigPath
		update["signature_url"] = sigURL
	}
	if req.ProfilePicture != "" {
		picture, err := decodeBase64(req.ProfilePicture)
		if err != nil {
			config.ErrorStatus("failed to decode profile picture", http.StatusBadRequest, w, err)
			return
		}
		picturePath := "profile_picture/" + targetUID
		pictureURL, err := u.Store.Upload(ctx, picturePath, picture)
		if err != nil {
			config.ErrorStatus("failed to store profile picture", http.StatusInternalServerError, w, err)
			return
		}
		update["profile_picture"] = picturePath
		update["profile_picture_url"] = pictureURL
	}

	_, err := u.DB.UpdateOne(ctx, bson.M{"_id": targetUID}, bson.M{"$set": update})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user updated successfully",
	})
}

// GetUserHandler returns the caller's profile with signature and profile
// picture content resolved from blob storage.
func (u User) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	resp := map[string]interface{}{"user": user}
	if user.SignatureURL != "" {
		if sig, err := u.Store.Download(ctx, user.SignatureURL); err == nil {
			resp["signature"] = base64.StdEncoding.EncodeToString(sig)
		} else {
			zap.S().Warnw("failed to resolve signature blob", "uid", user.UID, "error", err)
		}
	}
	if user.ProfilePictureURL != "" {
		if picture, err := u.Store.Download(ctx, user.ProfilePictureURL); err == nil {
			resp["profile_picture"] = base64.StdEncoding.EncodeToString(picture)
		} else {
			zap.S().Warnw("failed to resolve profile picture blob", "uid", user.UID, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// GetUsersHandler returns all users paginated, admin only.
func (u User) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit64 := int64(getPageLimit(r))
	Page = getPage(Page, r)
	skip64 := int64(Page) * limit64

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"name": 1})

	dbResp, err := u.DB.Find(ctx, bson.D{}, opts)
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.User{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SearchUserHandler returns users whose name, email, or dod starts with
// the query, deduplicated by uid.
func (u User) SearchUserHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		config.ErrorStatus("missing query", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"name": bson.M{"$regex": "^" + query, "$options": "i"}},
		{"email": bson.M{"$regex": "^" + query, "$options": "i"}},
		{"dod": bson.M{"$regex": "^" + query, "$options": "i"}},
	}}

	dbResp, err := u.DB.Find(ctx, filter, options.Find().SetLimit(25))
	if err != nil {
		config.ErrorStatus("failed to search users", http.StatusNotFound, w, err)
		return
	}

	seen := make(map[string]bool, len(dbResp))
	results := make([]models.User, 0, len(dbResp))
	for _, user := range dbResp {
		if seen[user.UID] {
			continue
		}
		seen[user.UID] = true
		results = append(results, user)
	}

	b, err := json.Marshal(results)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// GetSubordinatesHandler returns the caller's subtree of the org chart
// stored in blob storage at org/org.json.
func (u User) GetSubordinatesHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	caller, err := u.DB.FindOne(ctx, bson.M{"_id": ident.UID})
	if err != nil {
		config.ErrorStatus("caller is not registered", http.StatusBadRequest, w, err)
		return
	}

	raw, err := u.Store.Download(ctx, "org/org.json")
	if err != nil {
		config.ErrorStatus("org chart is not available", http.StatusNotFound, w, err)
		return
	}
	var roots []models.OrgMember
	if err := json.Unmarshal(raw, &roots); err != nil {
		// the chart may also be a single root object
		var root models.OrgMember
		if err := json.Unmarshal(raw, &root); err != nil {
			config.ErrorStatus("failed to parse org chart", http.StatusInternalServerError, w, err)
			return
		}
		roots = []models.OrgMember{root}
	}

	node := findOrgMember(roots, caller.Dod)
	if node == nil {
		config.ErrorStatus("caller not present in org chart", http.StatusNotFound, w, fmt.Errorf("dod %s", caller.Dod))
		return
	}

	b, err := json.Marshal(node.Sub)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteUserHandler removes a user's profile, blobs, and identity-provider
// account, admin only.
func (u User) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": uid})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	for _, path := range []string{"signature/" + uid, "profile_picture/" + uid} {
		if err := u.Store.Delete(ctx, path); err != nil {
			zap.S().Warnw("failed to delete user blob",
				"path", path,
				"error", err)
		}
	}

	if _, err := u.DB.DeleteOne(ctx, bson.M{"_id": uid}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}

	if err := u.Provider.DeleteUser(ctx, uid); err != nil {
		zap.S().Errorw("failed to delete identity-provider account",
			"uid", user.UID,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user deleted successfully",
	})
}

func findOrgMember(nodes []models.OrgMember, dod string) *models.OrgMember {
	for i := range nodes {
		if nodes[i].Dod == dod {
			return &nodes[i]
		}
		if found := findOrgMember(nodes[i].Sub, dod); found != nil {
			return found
		}
	}
	return nil
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/models"
)

// Roster exported for testing purposes
type Roster struct {
	DB  databases.RosterDatabase
	UDB databases.UserDatabase
}

type createRosterRequest struct {
	Name  string                `json:"roster_name"`
	Users []models.RosterMember `json:"users"`
}

// CreateRosterHandler registers a new named roster. Roster names are unique.
func (ro Roster) CreateRosterHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req createRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		config.ErrorStatus("missing roster_name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := ro.DB.FindOne(ctx, bson.M{"_id": req.Name}); err == nil {
		config.ErrorStatus("roster already exists", http.StatusBadRequest, w, fmt.Errorf("roster %s exists", req.Name))
		return
	}

	if req.Users == nil {
		req.Users = []models.RosterMember{}
	}
	roster := models.Roster{
		Name:      req.Name,
		Author:    ident.UID,
		Users:     req.Users,
		Timestamp: time.Now().UTC(),
	}
	if err := ro.DB.InsertOne(ctx, roster); err != nil {
		config.ErrorStatus("failed to create roster", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":     "roster created successfully",
		"roster_name": roster.Name,
	})
}

// ShowRostersHandler returns all rosters paginated, sorted by name.
func (ro Roster) ShowRostersHandler(w http.ResponseWriter, r *http.Request) {
	limit64 := int64(getPageLimit(r))
	Page = getPage(Page, r)
	skip64 := int64(Page) * limit64

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(limit64).
		SetSkip(skip64).
		SetSort(bson.M{"_id": 1})

	dbResp, err := ro.DB.Find(ctx, bson.D{}, opts)
	if err != nil {
		config.ErrorStatus("failed to get rosters", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Roster{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SearchRosterHandler returns rosters whose name starts with the query.
func (ro Roster) SearchRosterHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		config.ErrorStatus("missing query", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{"_id": bson.M{"$regex": "^" + query, "$options": "i"}}
	dbResp, err := ro.DB.Find(ctx, filter, options.Find().SetLimit(25))
	if err != nil {
		config.ErrorStatus("failed to search rosters", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Roster{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteRosterHandler removes a roster by name.
func (ro Roster) DeleteRosterHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("roster_name"))
	if name == "" {
		config.ErrorStatus("missing roster_name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	deleted, err := ro.DB.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		config.ErrorStatus("failed to delete roster", http.StatusInternalServerError, w, err)
		return
	}
	if deleted == 0 {
		config.ErrorStatus("roster not found", http.StatusNotFound, w, fmt.Errorf("roster %s", name))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "roster deleted successfully",
	})
}

type addToRosterRequest struct {
	Name string              `json:"roster_name"`
	User models.RosterMember `json:"user"`
}

// AddToRosterHandler appends a member to a roster. Adding a dod that is
// already on the roster is a no-op.
func (ro Roster) AddToRosterHandler(w http.ResponseWriter, r *http.Request) {
	var req addToRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Name == "" || req.User.Dod == "" {
		config.ErrorStatus("missing roster_name or user dod", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// fill in the member's details from their profile when they exist
	if user, err := ro.UDB.FindOne(ctx, bson.M{"dod": req.User.Dod}); err == nil {
		if req.User.Name == "" {
			req.User.Name = user.Name
		}
		if req.User.Rank == "" {
			req.User.Rank = user.Rank
		}
		if req.User.UnitName == "" {
			req.User.UnitName = user.UnitName
		}
	}

	res, err := ro.DB.UpdateOne(ctx,
		bson.M{"_id": req.Name, "users.dod": bson.M{"$ne": req.User.Dod}},
		bson.M{"$push": bson.M{"users": req.User}})
	if err != nil {
		config.ErrorStatus("failed to update roster", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		// either the roster is missing or the dod is already on it
		if _, err := ro.DB.FindOne(ctx, bson.M{"_id": req.Name}); err != nil {
			config.ErrorStatus("roster not found", http.StatusNotFound, w, err)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user added to roster successfully",
	})
}

type removeFromRosterRequest struct {
	Name string `json:"roster_name"`
	Dod  string `json:"dod"`
}

// RemoveFromRosterHandler pulls a member off a roster, admin only.
func (ro Roster) RemoveFromRosterHandler(w http.ResponseWriter, r *http.Request) {
	var req removeFromRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Name == "" || req.Dod == "" {
		config.ErrorStatus("missing roster_name or dod", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := ro.DB.UpdateOne(ctx,
		bson.M{"_id": req.Name},
		bson.M{"$pull": bson.M{"users": bson.M{"dod": req.Dod}}})
	if err != nil {
		config.ErrorStatus("failed to update roster", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("roster not found", http.StatusNotFound, w, fmt.Errorf("roster %s", req.Name))
		return
	}
	if res.ModifiedCount == 0 {
		config.ErrorStatus("user not found in roster", http.StatusNotFound, w, fmt.Errorf("dod %s not on roster %s", req.Dod, req.Name))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "user removed from roster successfully",
	})
}

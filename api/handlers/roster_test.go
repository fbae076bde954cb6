package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/unit-mercury/mercury-api/api/handlers"
	dbmocks "github.com/unit-mercury/mercury-api/databases/mocks"
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
)

func TestRoster_Create(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": "alpha-company"}).
		Return(nil, mongo.ErrNoDocuments)

	var created models.Roster
	rdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Roster")).
		Run(func(args mock.Arguments) { created = args.Get(1).(models.Roster) }).
		Return(nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("POST", "/rosters/create_roster", map[string]interface{}{
		"roster_name": "alpha-company",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.CreateRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "roster created successfully")
	assert.Equal(t, "alpha-company", created.Name)
	assert.Equal(t, "author-1", created.Author)
	assert.NotNil(t, created.Users)
}

func TestRoster_CreateDuplicateName(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": "alpha-company"}).
		Return(&models.Roster{Name: "alpha-company"}, nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("POST", "/rosters/create_roster", map[string]interface{}{
		"roster_name": "alpha-company",
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.CreateRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "roster already exists")
}

func TestRoster_AddFillsMemberFromProfile(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"dod": "1111111111"}).
		Return(&models.User{UID: "uid-1", Dod: "1111111111", Name: "SGT Park", Rank: "SGT", UnitName: "1-100 IN BN"}, nil)

	var update bson.M
	rdb.On("UpdateOne", mock.Anything,
		bson.M{"_id": "alpha-company", "users.dod": bson.M{"$ne": "1111111111"}},
		mock.Anything).
		Run(func(args mock.Arguments) { update = args.Get(2).(bson.M) }).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	ro := handlers.Roster{DB: rdb, UDB: udb}

	req := authedRequest("PUT", "/rosters/add_to_roster", map[string]interface{}{
		"roster_name": "alpha-company",
		"user":        map[string]interface{}{"dod": "1111111111"},
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.AddToRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "user added to roster successfully")

	member := update["$push"].(bson.M)["users"].(models.RosterMember)
	assert.Equal(t, "SGT Park", member.Name)
	assert.Equal(t, "SGT", member.Rank)
	assert.Equal(t, "1-100 IN BN", member.UnitName)
}

func TestRoster_AddToUnknownRoster(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)
	udb := dbmocks.NewUserDatabase(t)

	udb.On("FindOne", mock.Anything, bson.M{"dod": "1111111111"}).
		Return(nil, mongo.ErrNoDocuments)
	rdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	rdb.On("FindOne", mock.Anything, bson.M{"_id": "ghost-roster"}).
		Return(nil, mongo.ErrNoDocuments)

	ro := handlers.Roster{DB: rdb, UDB: udb}

	req := authedRequest("PUT", "/rosters/add_to_roster", map[string]interface{}{
		"roster_name": "ghost-roster",
		"user":        map[string]interface{}{"dod": "1111111111"},
	}, &identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.AddToRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "roster not found")
}

func TestRoster_RemoveMember(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	rdb.On("UpdateOne", mock.Anything,
		bson.M{"_id": "alpha-company"},
		bson.M{"$pull": bson.M{"users": bson.M{"dod": "1111111111"}}}).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("DELETE", "/rosters/remove_from_roster", map[string]interface{}{
		"roster_name": "alpha-company",
		"dod":         "1111111111",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.RemoveFromRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "user removed from roster successfully")
}

func TestRoster_RemoveMemberNotOnRoster(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	// roster matched but nothing pulled
	rdb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("DELETE", "/rosters/remove_from_roster", map[string]interface{}{
		"roster_name": "alpha-company",
		"dod":         "9999999999",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.RemoveFromRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "user not found in roster")
}

func TestRoster_DeleteUnknownRoster(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	rdb.On("DeleteOne", mock.Anything, bson.M{"_id": "ghost-roster"}).
		Return(int64(0), nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("DELETE", "/rosters/delete_roster?roster_name=ghost-roster", nil,
		&identity.Identity{UID: "author-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.DeleteRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "roster not found")
}

func TestRoster_SearchByPrefix(t *testing.T) {
	rdb := dbmocks.NewRosterDatabase(t)

	rdb.On("Find", mock.Anything,
		bson.M{"_id": bson.M{"$regex": "^alpha", "$options": "i"}},
		mock.Anything).
		Return([]models.Roster{{Name: "alpha-company"}}, nil)

	ro := handlers.Roster{DB: rdb}

	req := authedRequest("GET", "/rosters/search_roster?query=alpha", nil,
		&identity.Identity{UID: "uid-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(ro.SearchRosterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alpha-company")
}

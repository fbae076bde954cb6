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
	idmocks "github.com/unit-mercury/mercury-api/identity/mocks"
	"github.com/unit-mercury/mercury-api/models"
)

func TestRole_AssignRaisesAccessLevel(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)
	provider := idmocks.NewProvider(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(&models.RoleSet{Roles: map[string]int{"medic": 5, "nurse": 3}}, nil)
	provider.On("GetClaimsByEmail", mock.Anything, "park@unit.mil").
		Return("uid-1", models.Claims{Roles: []string{"nurse"}, AccessLevel: 3}, nil)

	var saved models.Claims
	provider.On("SetClaims", mock.Anything, "uid-1", mock.AnythingOfType("models.Claims")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(models.Claims) }).
		Return(nil)
	rdb.On("UpdateOne", mock.Anything, bson.M{"_id": models.RoleSetID}, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	rl := handlers.Role{DB: rdb, Provider: provider}

	req := authedRequest("POST", "/roles/assign_role", map[string]interface{}{
		"email":     "park@unit.mil",
		"role_name": "medic",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.AssignRoleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []string{"nurse", "medic"}, saved.Roles)
	assert.Equal(t, 5, saved.AccessLevel)
}

func TestRole_AssignUnknownRole(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(&models.RoleSet{Roles: map[string]int{"medic": 5}}, nil)

	rl := handlers.Role{DB: rdb}

	req := authedRequest("POST", "/roles/assign_role", map[string]interface{}{
		"email":     "park@unit.mil",
		"role_name": "pilot",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.AssignRoleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown role")
}

func TestRole_RevokeDropsToRemainingLevel(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)
	provider := idmocks.NewProvider(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(&models.RoleSet{Roles: map[string]int{"medic": 5, "nurse": 3}}, nil)
	provider.On("GetClaimsByEmail", mock.Anything, "park@unit.mil").
		Return("uid-1", models.Claims{Roles: []string{"medic", "nurse"}, AccessLevel: 5}, nil)

	var saved models.Claims
	provider.On("SetClaims", mock.Anything, "uid-1", mock.AnythingOfType("models.Claims")).
		Run(func(args mock.Arguments) { saved = args.Get(2).(models.Claims) }).
		Return(nil)
	rdb.On("UpdateOne", mock.Anything, bson.M{"_id": models.RoleSetID}, mock.Anything).
		Return(&mongo.UpdateResult{ModifiedCount: 1}, nil)

	rl := handlers.Role{DB: rdb, Provider: provider}

	req := authedRequest("POST", "/roles/revoke_role", map[string]interface{}{
		"email":     "park@unit.mil",
		"role_name": "medic",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.RevokeRoleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"nurse"}, saved.Roles)
	assert.Equal(t, 3, saved.AccessLevel)
}

func TestRole_RevokeRoleNotHeld(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)
	provider := idmocks.NewProvider(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(&models.RoleSet{Roles: map[string]int{"medic": 5}}, nil)
	provider.On("GetClaimsByEmail", mock.Anything, "park@unit.mil").
		Return("uid-1", models.Claims{}, nil)

	rl := handlers.Role{DB: rdb, Provider: provider}

	req := authedRequest("POST", "/roles/revoke_role", map[string]interface{}{
		"email":     "park@unit.mil",
		"role_name": "medic",
	}, &identity.Identity{UID: "admin-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.RevokeRoleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRole_GetAllRolesEmptyWithoutDocument(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)

	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(nil, mongo.ErrNoDocuments)

	rl := handlers.Role{DB: rdb}

	req := authedRequest("GET", "/roles/get_all_roles", nil, &identity.Identity{UID: "uid-1"})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.GetAllRolesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "{}", rr.Body.String())
}

func TestRole_CheckRolePermissions(t *testing.T) {
	cases := []struct {
		name   string
		claims models.Claims
		code   int
	}{
		{"role held", models.Claims{Roles: []string{"medic"}, AccessLevel: 5}, http.StatusOK},
		{"level outranks role", models.Claims{Roles: []string{"surgeon"}, AccessLevel: 8}, http.StatusOK},
		{"admin bypasses", models.Claims{Admin: true}, http.StatusOK},
		{"no role, low level", models.Claims{Roles: []string{"nurse"}, AccessLevel: 3}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rdb := dbmocks.NewRoleDatabase(t)
			rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
				Return(&models.RoleSet{Roles: map[string]int{"medic": 5, "nurse": 3}}, nil)

			rl := handlers.Role{DB: rdb}

			req := authedRequest("POST", "/roles/check_role_permissions", map[string]interface{}{
				"role_name": "medic",
			}, &identity.Identity{UID: "uid-1", Claims: tc.claims})

			rr := httptest.NewRecorder()
			http.HandlerFunc(rl.CheckRolePermissionsHandler).ServeHTTP(rr, req)

			assert.Equal(t, tc.code, rr.Code)
		})
	}
}

func TestRole_CheckRolePermissionsUnknownRole(t *testing.T) {
	rdb := dbmocks.NewRoleDatabase(t)
	rdb.On("FindOne", mock.Anything, bson.M{"_id": models.RoleSetID}).
		Return(&models.RoleSet{Roles: map[string]int{"medic": 5}}, nil)

	rl := handlers.Role{DB: rdb}

	req := authedRequest("POST", "/roles/check_role_permissions", map[string]interface{}{
		"role_name": "pilot",
	}, &identity.Identity{UID: "uid-1", Claims: models.Claims{Admin: true}})

	rr := httptest.NewRecorder()
	http.HandlerFunc(rl.CheckRolePermissionsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown role")
}

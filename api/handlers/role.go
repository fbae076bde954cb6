package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/unit-mercury/mercury-api/api"
	"github.com/unit-mercury/mercury-api/config"
	"github.com/unit-mercury/mercury-api/databases"
	"github.com/unit-mercury/mercury-api/identity"
	"github.com/unit-mercury/mercury-api/models"
	templates "github.com/unit-mercury/mercury-api/templates/html"
)

// Role exported for testing purposes
type Role struct {
	DB       databases.RoleDatabase
	UDB      databases.UserDatabase
	Provider identity.Provider
	Config   config.Config
}

type createRoleRequest struct {
	RoleName string `json:"role_name"`
	Level    int    `json:"level"`
}

// CreateRoleHandler registers a role name with its access level in the global
// role set. Re-creating an existing role updates its level.
func (rl Role) CreateRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.RoleName == "" {
		config.ErrorStatus("missing role_name", http.StatusBadRequest, w, errMissingField)
		return
	}
	if req.Level < 0 {
		config.ErrorStatus("level must not be negative", http.StatusBadRequest, w, fmt.Errorf("level %d", req.Level))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	_, err := rl.DB.UpdateOne(ctx,
		bson.M{"_id": models.RoleSetID},
		bson.M{
			"$set":      bson.M{"roles." + req.RoleName: req.Level},
			"$addToSet": bson.M{"roleArray": req.RoleName},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		config.ErrorStatus("failed to create role", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "role created successfully",
	})
}

type memberRoleRequest struct {
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
}

// AssignRoleHandler grants a role to a member by email. The member's access
// level only moves up: it becomes the max of their current level and the
// role's level.
func (rl Role) AssignRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req memberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Email == "" || req.RoleName == "" {
		config.ErrorStatus("missing email or role_name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set, err := rl.DB.FindOne(ctx, bson.M{"_id": models.RoleSetID})
	if err != nil {
		config.ErrorStatus("failed to get roles", http.StatusNotFound, w, err)
		return
	}
	level, ok := set.Roles[req.RoleName]
	if !ok {
		config.ErrorStatus("unknown role", http.StatusBadRequest, w, fmt.Errorf("role %q", req.RoleName))
		return
	}

	uid, claims, err := rl.Provider.GetClaimsByEmail(ctx, req.Email)
	if err != nil {
		config.ErrorStatus("failed to get user by email", http.StatusNotFound, w, err)
		return
	}

	claims.Grant(req.RoleName, level)
	if err := rl.Provider.SetClaims(ctx, uid, claims); err != nil {
		config.ErrorStatus("failed to set claims", http.StatusInternalServerError, w, err)
		return
	}

	_, err = rl.DB.UpdateOne(ctx,
		bson.M{"_id": models.RoleSetID},
		bson.M{"$addToSet": bson.M{"rolesToUser." + req.RoleName: req.Email}})
	if err != nil {
		zap.S().Errorw("failed to index member under role",
			"role", req.RoleName,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "role assigned successfully",
		"claims":  claims,
	})
}

// RevokeRoleHandler removes a role from a member. Their access level is
// recomputed as the max level among remaining roles, zero when none remain.
func (rl Role) RevokeRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req memberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Email == "" || req.RoleName == "" {
		config.ErrorStatus("missing email or role_name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set, err := rl.DB.FindOne(ctx, bson.M{"_id": models.RoleSetID})
	if err != nil {
		config.ErrorStatus("failed to get roles", http.StatusNotFound, w, err)
		return
	}

	uid, claims, err := rl.Provider.GetClaimsByEmail(ctx, req.Email)
	if err != nil {
		config.ErrorStatus("failed to get user by email", http.StatusNotFound, w, err)
		return
	}
	if !claims.HasRole(req.RoleName) {
		config.ErrorStatus("member does not have this role", http.StatusBadRequest, w, fmt.Errorf("role %q", req.RoleName))
		return
	}

	claims.Revoke(req.RoleName, set.Roles)
	if err := rl.Provider.SetClaims(ctx, uid, claims); err != nil {
		config.ErrorStatus("failed to set claims", http.StatusInternalServerError, w, err)
		return
	}

	_, err = rl.DB.UpdateOne(ctx,
		bson.M{"_id": models.RoleSetID},
		bson.M{"$pull": bson.M{"rolesToUser." + req.RoleName: req.Email}})
	if err != nil {
		zap.S().Errorw("failed to remove member from role index",
			"role", req.RoleName,
			"error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "role revoked successfully",
		"claims":  claims,
	})
}

// GetAllRolesHandler returns the role name to access level map
func (rl Role) GetAllRolesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set, err := rl.DB.FindOne(ctx, bson.M{"_id": models.RoleSetID})
	if err != nil {
		// no roles created yet
		set = &models.RoleSet{Roles: map[string]int{}}
	}

	b, err := json.Marshal(set.Roles)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type checkRolePermissionsRequest struct {
	RoleName string `json:"role_name"`
}

// CheckRolePermissionsHandler reports whether the caller may act as the named
// role. Admins always may; otherwise the caller needs the role itself or an
// access level at or above the role's level.
func (rl Role) CheckRolePermissionsHandler(w http.ResponseWriter, r *http.Request) {
	ident, ok := api.IdentityFromRequest(r)
	if !ok {
		config.ErrorStatus("caller identity missing", http.StatusUnauthorized, w, errMissingIdentity)
		return
	}

	var req checkRolePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.RoleName == "" {
		config.ErrorStatus("missing role_name", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set, err := rl.DB.FindOne(ctx, bson.M{"_id": models.RoleSetID})
	if err != nil {
		config.ErrorStatus("failed to get roles", http.StatusNotFound, w, err)
		return
	}
	level, known := set.Roles[req.RoleName]
	if !known {
		config.ErrorStatus("unknown role", http.StatusBadRequest, w, fmt.Errorf("role %q", req.RoleName))
		return
	}

	claims := ident.Claims
	if !claims.Admin && !claims.HasRole(req.RoleName) && claims.AccessLevel < level {
		config.ErrorStatus("caller lacks this role", http.StatusUnauthorized, w, errNotPermitted)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "permission granted",
		"role_name": req.RoleName,
	})
}

type inviteRoleRequest struct {
	RoleName string `json:"role_name"`
	EventID  string `json:"event_id"`
	Title    string `json:"title"`
}

// InviteRoleHandler emails the event link to every member of a role
func (rl Role) InviteRoleHandler(w http.ResponseWriter, r *http.Request) {
	var req inviteRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.RoleName == "" || req.EventID == "" {
		config.ErrorStatus("missing role_name or event_id", http.StatusBadRequest, w, errMissingField)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set, err := rl.DB.FindOne(ctx, bson.M{"_id": models.RoleSetID})
	if err != nil {
		config.ErrorStatus("failed to get roles", http.StatusNotFound, w, err)
		return
	}
	members := set.RolesToUser[req.RoleName]
	if len(members) == 0 {
		config.ErrorStatus("role has no members", http.StatusBadRequest, w, fmt.Errorf("role %q", req.RoleName))
		return
	}

	eventLink := rl.Config.BaseURL + "/events/get_event/" + req.EventID
	sent := 0
	for _, email := range members {
		name := email
		if user, err := rl.UDB.FindOne(ctx, bson.M{"email": email}); err == nil {
			name = user.Name
		}
		if err := rl.sendInviteEmail(email, name, req.Title, eventLink); err != nil {
			zap.S().Warnw("failed to send invite email",
				"email", email,
				"error", err)
			continue
		}
		sent++
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "invitations sent",
		"sent":    sent,
	})
}

func (rl Role) sendInviteEmail(toEmail, toName, eventTitle, eventLink string) error {
	from := mail.NewEmail("Mercury", "no-reply@unit-mercury.app")
	to := mail.NewEmail(toName, toEmail)
	htmlContent := templates.RenderEventInviteEmail(toName, eventTitle, eventLink)
	plainText := fmt.Sprintf("You have been invited to %s. View the event: %s", eventTitle, eventLink)
	message := mail.NewSingleEmail(from, "You're invited: "+eventTitle, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(rl.Config.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}

package models

// RoleSetID is the document id of the global role singleton
const RoleSetID = "allRoles"

// RoleSet is the global singleton document mapping role name to access level,
// the role-name array kept for ordered listing, and the reverse index of role
// name to member emails.
type RoleSet struct {
	ID          string              `json:"-" bson:"_id"`
	Roles       map[string]int      `json:"roles" bson:"roles"`
	RoleArray   []string            `json:"roleArray" bson:"roleArray"`
	RolesToUser map[string][]string `json:"roles_to_user" bson:"rolesToUser"`
}

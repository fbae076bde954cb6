package models

// Claims is the fixed shape of the custom claims carried by the identity
// provider for a user: the set of granted role names, the numeric access
// level derived from them, and the admin flag.
type Claims struct {
	Roles       []string `json:"roles" bson:"roles"`
	AccessLevel int      `json:"accessLevel" bson:"accessLevel"`
	Admin       bool     `json:"admin" bson:"admin"`
}

// HasRole reports whether the role has been granted
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Grant adds a role to the claim set. The access level only moves up: the
// resulting level is the max of the current level and the new role's level.
func (c *Claims) Grant(role string, level int) {
	if !c.HasRole(role) {
		c.Roles = append(c.Roles, role)
	}
	if level > c.AccessLevel {
		c.AccessLevel = level
	}
}

// Revoke removes a role and recomputes the access level as the maximum level
// among the remaining roles, looked up in the role-to-level map. A user with
// no remaining roles drops to level 0.
func (c *Claims) Revoke(role string, levels map[string]int) {
	remaining := c.Roles[:0]
	for _, r := range c.Roles {
		if r != role {
			remaining = append(remaining, r)
		}
	}
	c.Roles = remaining

	newLevel := 0
	for _, r := range c.Roles {
		if l, ok := levels[r]; ok && l > newLevel {
			newLevel = l
		}
	}
	c.AccessLevel = newLevel
}

// ToMap renders the claims in the open map form the identity provider stores
func (c Claims) ToMap() map[string]interface{} {
	roles := make([]interface{}, 0, len(c.Roles))
	for _, r := range c.Roles {
		roles = append(roles, r)
	}
	return map[string]interface{}{
		"roles":       roles,
		"accessLevel": c.AccessLevel,
		"admin":       c.Admin,
	}
}

// ClaimsFromMap parses the identity provider's claims map into the fixed
// Claims shape. Unknown keys are ignored; numbers arrive as float64 from JSON.
func ClaimsFromMap(m map[string]interface{}) Claims {
	var c Claims
	if m == nil {
		return c
	}
	if roles, ok := m["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				c.Roles = append(c.Roles, s)
			}
		}
	}
	switch v := m["accessLevel"].(type) {
	case float64:
		c.AccessLevel = int(v)
	case int:
		c.AccessLevel = v
	case int64:
		c.AccessLevel = int(v)
	}
	if admin, ok := m["admin"].(bool); ok {
		c.Admin = admin
	}
	return c
}

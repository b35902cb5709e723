package jwt

// Role is the access level carried in a token
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// ValidRole reports whether a role string names a known role
func ValidRole(role Role) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// HasRole checks whether the claims grant the given role. Admins satisfy
// every role check.
func (c *JWTClaims) HasRole(role Role) bool {
	if Role(c.Role) == RoleAdmin {
		return true
	}
	return Role(c.Role) == role
}

// Permission is a fine-grained operation grant derived from the role
type Permission string

const (
	PermReadBot    Permission = "bot:read"
	PermWriteBot   Permission = "bot:write"
	PermDeleteBot  Permission = "bot:delete"
	PermUseVoice   Permission = "voice:use"
	PermManageUser Permission = "user:manage"
)

// rolePermissions maps each role to what it may do
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {PermReadBot, PermWriteBot, PermDeleteBot, PermUseVoice, PermManageUser},
	RoleUser:  {PermReadBot, PermWriteBot, PermUseVoice},
	RoleGuest: {PermReadBot},
}

// HasPermission checks whether the claims' role grants a permission
func (c *JWTClaims) HasPermission(permission Permission) bool {
	for _, p := range rolePermissions[Role(c.Role)] {
		if p == permission {
			return true
		}
	}
	return false
}

package domain

// Role names stored on the user record and embedded in access-token claims.
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// ValidRole reports whether name is one of the known roles.
func ValidRole(name string) bool {
	switch name {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

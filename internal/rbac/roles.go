package rbac

// Role names. Keep these stable; they are embedded in issued device tokens.
const (
	// RoleDevice posts call-state and connectivity events and owns the upload session.
	RoleDevice = "device"
	// RoleOperator inspects and replays the failure log.
	RoleOperator   = "operator"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsKnownRole(role string) bool {
	switch role {
	case RoleDevice, RoleOperator, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

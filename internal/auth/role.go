package auth

// Role is the access level attached to every authenticated request.
// The zero value is not a valid role; unknown strings map to RoleUnknown.
type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"

	RoleUnknown Role = ""
)

func ParseRole(s string) Role {
	switch s {
	case string(RoleMember):
		return RoleMember
	case string(RoleTrainer):
		return RoleTrainer
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

func (r Role) Valid() bool {
	return r == RoleMember || r == RoleTrainer || r == RoleAdmin
}

package enums

import "fmt"

// MemberRole is the role a user holds inside a cooperative.
type MemberRole string

const (
	MemberRoleAdmin     MemberRole = "admin"
	MemberRoleTreasurer MemberRole = "treasurer"
	MemberRoleMember    MemberRole = "member"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleTreasurer,
	MemberRoleMember,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}

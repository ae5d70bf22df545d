package enums

// MemberStatus tracks whether a cooperative member is in good standing.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "active"
	MemberStatusInactive  MemberStatus = "inactive"
	MemberStatusSuspended MemberStatus = "suspended"
)

// IsValid reports whether the value is known.
func (m MemberStatus) IsValid() bool {
	switch m {
	case MemberStatusActive, MemberStatusInactive, MemberStatusSuspended:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (m MemberStatus) String() string {
	return string(m)
}

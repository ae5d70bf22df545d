package enums

import "fmt"

// LimitType names a plan-limited resource.
type LimitType string

const (
	LimitTypeMembers           LimitType = "members"
	LimitTypeContributionPlans LimitType = "contribution_plans"
	LimitTypeGroupBuys         LimitType = "group_buys"
	LimitTypeLoans             LimitType = "loans"
)

var validLimitTypes = []LimitType{
	LimitTypeMembers,
	LimitTypeContributionPlans,
	LimitTypeGroupBuys,
	LimitTypeLoans,
}

// String implements fmt.Stringer.
func (l LimitType) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l LimitType) IsValid() bool {
	for _, candidate := range validLimitTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// Label returns the human-readable resource name used in limit messages.
func (l LimitType) Label() string {
	switch l {
	case LimitTypeMembers:
		return "members"
	case LimitTypeContributionPlans:
		return "contribution plans"
	case LimitTypeGroupBuys:
		return "group buys"
	case LimitTypeLoans:
		return "loans per month"
	default:
		return string(l)
	}
}

// ParseLimitType converts raw input into a LimitType.
func ParseLimitType(value string) (LimitType, error) {
	for _, candidate := range validLimitTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid limit type %q", value)
}

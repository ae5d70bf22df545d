package enums

// GroupBuyStatus tracks the lifecycle of a cooperative group buy.
type GroupBuyStatus string

const (
	GroupBuyStatusDraft     GroupBuyStatus = "draft"
	GroupBuyStatusActive    GroupBuyStatus = "active"
	GroupBuyStatusCompleted GroupBuyStatus = "completed"
	GroupBuyStatusCancelled GroupBuyStatus = "cancelled"
)

// IsValid reports whether the value is known.
func (g GroupBuyStatus) IsValid() bool {
	switch g {
	case GroupBuyStatusDraft, GroupBuyStatusActive, GroupBuyStatusCompleted, GroupBuyStatusCancelled:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (g GroupBuyStatus) String() string {
	return string(g)
}

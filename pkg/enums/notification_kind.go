package enums

// NotificationKind labels billing notifications delivered to cooperative admins.
type NotificationKind string

const (
	NotificationKindSubscriptionActivated NotificationKind = "subscription.activated"
	NotificationKindSubscriptionPastDue   NotificationKind = "subscription.past_due"
	NotificationKindSubscriptionCancelled NotificationKind = "subscription.cancelled"
	NotificationKindPlanChanged           NotificationKind = "subscription.plan_changed"
	NotificationKindPaymentFailed         NotificationKind = "payment.failed"
)

// IsValid reports whether the value is known.
func (n NotificationKind) IsValid() bool {
	switch n {
	case NotificationKindSubscriptionActivated,
		NotificationKindSubscriptionPastDue,
		NotificationKindSubscriptionCancelled,
		NotificationKindPlanChanged,
		NotificationKindPaymentFailed:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

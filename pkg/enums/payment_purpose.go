package enums

import "fmt"

// PaymentPurpose distinguishes a full-period charge from a mid-cycle upgrade charge.
type PaymentPurpose string

const (
	PaymentPurposeSubscription PaymentPurpose = "subscription"
	PaymentPurposeUpgrade      PaymentPurpose = "upgrade"
)

var validPaymentPurposes = []PaymentPurpose{
	PaymentPurposeSubscription,
	PaymentPurposeUpgrade,
}

// String implements fmt.Stringer.
func (p PaymentPurpose) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentPurpose) IsValid() bool {
	for _, candidate := range validPaymentPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPurpose converts raw input into a PaymentPurpose.
func ParsePaymentPurpose(value string) (PaymentPurpose, error) {
	for _, candidate := range validPaymentPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment purpose %q", value)
}

package enums

// LoanStatus tracks a member loan request.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
	LoanStatusRepaid   LoanStatus = "repaid"
)

// IsValid reports whether the value is known.
func (l LoanStatus) IsValid() bool {
	switch l {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected, LoanStatusRepaid:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (l LoanStatus) String() string {
	return string(l)
}

package enums

// TransactionStatus tracks a ledger transaction's lifecycle. Rows are never
// deleted; cancellation is a status change.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}

// TransactionPaymentStatus tracks whether the money behind a ledger
// transaction actually cleared.
type TransactionPaymentStatus string

const (
	TransactionPaymentStatusPending   TransactionPaymentStatus = "pending"
	TransactionPaymentStatusPaid      TransactionPaymentStatus = "paid"
	TransactionPaymentStatusCancelled TransactionPaymentStatus = "cancelled"
)

// String implements fmt.Stringer.
func (s TransactionPaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionPaymentStatus.
func (s TransactionPaymentStatus) IsValid() bool {
	switch s {
	case TransactionPaymentStatusPending, TransactionPaymentStatusPaid, TransactionPaymentStatusCancelled:
		return true
	default:
		return false
	}
}

package enums

import "fmt"

// TransactionType classifies a single monetary movement on the ledger.
type TransactionType string

const (
	TransactionTypePayment     TransactionType = "payment"
	TransactionTypeDeliveryPay TransactionType = "delivery_pay"
	TransactionTypeTip         TransactionType = "tip"
)

var validTransactionTypes = []TransactionType{
	TransactionTypePayment,
	TransactionTypeDeliveryPay,
	TransactionTypeTip,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

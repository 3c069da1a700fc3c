package settlement

import (
	"github.com/dialadrink/backend/pkg/errors"
)

var (
	// ErrOrderNotFound is returned when the order id does not exist.
	ErrOrderNotFound = errors.New(errors.CodeNotFound, "order not found")

	// ErrOrderNotEligible is returned when the order re-validated inside the
	// transaction is not completed and paid.
	ErrOrderNotEligible = errors.New(errors.CodeStateConflict, "order is not completed and paid")

	// ErrPaymentRecordMissing is returned when a delivery order reaches
	// settlement with no completed payment transaction on file.
	ErrPaymentRecordMissing = errors.New(errors.CodePaymentMissing, "no completed payment transaction for order")
)

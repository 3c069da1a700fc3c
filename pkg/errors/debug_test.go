package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestDumpNilError(t *testing.T) {
	dump := Dump(nil)
	assert.Empty(t, dump.TopMessage)
	assert.Empty(t, dump.Chain)
}

func TestDumpCollectsChainAndCode(t *testing.T) {
	err := Wrap(CodeStateConflict, fmt.Errorf("inner cause"), "outer context")

	dump := Dump(err)
	assert.Equal(t, CodeStateConflict, dump.Code)
	assert.Contains(t, dump.TopMessage, "outer context")
	assert.GreaterOrEqual(t, len(dump.Chain), 2)
	assert.Contains(t, dump.Chain[len(dump.Chain)-1], "inner cause")
}

func TestDumpLiftsPgxConstraintDetails(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ledger_transactions_order_type_driver_uniq",
		TableName:      "ledger_transactions",
		Detail:         "Key (order_id, transaction_type, ...) already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	err := Wrap(CodeInternal, fmt.Errorf("writing merchant delivery row: %w", pgErr), "settlement failed")

	dump := Dump(err)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "ledger_transactions_order_type_driver_uniq", dump.PGConstraint)
	assert.Equal(t, "ledger_transactions", dump.PGTable)
}

func TestDumpLiftsPqErrorDetails(t *testing.T) {
	pqErr := &pq.Error{
		Code:       "23505",
		Constraint: "driver_wallets_driver_id_key",
		Table:      "driver_wallets",
	}
	err := fmt.Errorf("creating driver wallet: %w", pqErr)

	dump := Dump(err)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "driver_wallets_driver_id_key", dump.PGConstraint)
	assert.Equal(t, "driver_wallets", dump.PGTable)
}

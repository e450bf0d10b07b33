package repository

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/payment-tracker/internal/validation"
)

const createTablesQuery = `
CREATE TABLE IF NOT EXISTS customers (
    id VARCHAR(36) PRIMARY KEY,
    name TEXT NOT NULL,
    phone TEXT NOT NULL,
    total_amount NUMERIC NOT NULL,
    date_of_amount_taken DATE NOT NULL,
    day_of_amount_taken VARCHAR(16) NOT NULL,
    weekly_amount NUMERIC NOT NULL,
    created_at TIMESTAMP,
    updated_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS payments (
    id VARCHAR(36) PRIMARY KEY,
    customer_id VARCHAR(36) NOT NULL,
    payment_date DATE NOT NULL,
    amount NUMERIC NOT NULL,
    status VARCHAR(16) NOT NULL,
    week_number INTEGER NOT NULL,
    paid_date DATE,
    created_at TIMESTAMP,
    updated_at TIMESTAMP,
    FOREIGN KEY (customer_id) REFERENCES customers(id)
);
`

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	// every pooled connection would get its own in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(createTablesQuery)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestRepositories(t *testing.T) (CustomerRepository, PaymentRepository) {
	db := setupTestDB(t)
	validate := validation.New()
	clock := WithClock(stepClock(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))

	return NewCustomerRepository(db, validate, clock), NewPaymentRepository(db, validate, clock)
}

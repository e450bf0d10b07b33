package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/payment-tracker/internal/validation"
)

type Option func(*base)

// WithClock replaces time.Now as the source of lifecycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// base holds what every repository needs at the write boundary.
type base struct {
	db       *sqlx.DB
	validate *validation.Validator
	now      func() time.Time
}

func newBase(db *sqlx.DB, validate *validation.Validator, opts ...Option) base {
	b := base{db: db, validate: validate, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) customerExists(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (bool, error) {
	query := b.db.Rebind(`SELECT COUNT(1) FROM customers WHERE id = ?`)

	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

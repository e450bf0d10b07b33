package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/payment-tracker/internal/domain"
	"github.com/segyhp/payment-tracker/internal/validation"
	customError "github.com/segyhp/payment-tracker/pkg/errors"
)

const paymentColumns = `id, customer_id, payment_date, amount, status, week_number, paid_date, created_at, updated_at`

type paymentRepository struct {
	base
}

func NewPaymentRepository(db *sqlx.DB, validate *validation.Validator, opts ...Option) PaymentRepository {
	return &paymentRepository{base: newBase(db, validate, opts...)}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.CreateSchedule(ctx, []*domain.Payment{payment})
}

func (r *paymentRepository) CreateSchedule(ctx context.Context, payments []*domain.Payment) error {
	now := r.now()
	for _, payment := range payments {
		payment.PrepareForInsert(now)
		if err := r.validate.Struct(payment); err != nil {
			return err
		}
	}

	query := r.db.Rebind(`
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	checked := make(map[uuid.UUID]bool)
	for _, payment := range payments {
		if !checked[payment.CustomerID] {
			exists, err := r.customerExists(ctx, tx, payment.CustomerID)
			if err != nil {
				return fmt.Errorf("failed to look up customer: %w", err)
			}
			if !exists {
				return customError.WrapValidation([]customError.FieldError{
					{Field: "customer_id", Message: "Customer does not exist"},
				})
			}
			checked[payment.CustomerID] = true
		}

		_, err = tx.ExecContext(ctx, query,
			payment.ID,
			payment.CustomerID,
			payment.PaymentDate,
			payment.Amount,
			payment.Status,
			payment.WeekNumber,
			payment.PaidDate,
			payment.CreatedAt,
			payment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}

	return tx.Commit()
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = ?
	`)

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPaymentNotFound(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE customer_id = ?
		ORDER BY week_number
	`)

	payments := []*domain.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, customerID); err != nil {
		return nil, fmt.Errorf("failed to get payments: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	payment.PrepareForUpdate(r.now())
	if err := r.validate.Struct(payment); err != nil {
		return err
	}

	query := r.db.Rebind(`
		UPDATE payments
		SET payment_date = ?, amount = ?, status = ?, week_number = ?, paid_date = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		payment.PaymentDate,
		payment.Amount,
		payment.Status,
		payment.WeekNumber,
		payment.PaidDate,
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	return requireAffected(result, customError.WrapPaymentNotFound(payment.ID.String()))
}

func (r *paymentRepository) GetDueBefore(ctx context.Context, asOf domain.Date) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ? AND payment_date < ?
		ORDER BY payment_date, week_number
	`)

	payments := []*domain.Payment{}
	err := r.db.SelectContext(ctx, &payments, query, domain.PaymentStatusDue, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get due payments: %w", err)
	}

	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE customer_id = ? AND status = ?
	`)

	var total decimal.Decimal
	err := r.db.GetContext(ctx, &total, query, customerID, domain.PaymentStatusPaid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}

	return total, nil
}

func (r *paymentRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(1) FROM payments WHERE customer_id = ?`)

	var n int
	if err := r.db.GetContext(ctx, &n, query, customerID); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}

	return n, nil
}

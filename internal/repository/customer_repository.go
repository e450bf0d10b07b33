package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/payment-tracker/internal/domain"
	"github.com/segyhp/payment-tracker/internal/validation"
	customError "github.com/segyhp/payment-tracker/pkg/errors"
)

const customerColumns = `id, name, phone, total_amount, date_of_amount_taken, day_of_amount_taken, weekly_amount, created_at, updated_at`

type customerRepository struct {
	base
}

func NewCustomerRepository(db *sqlx.DB, validate *validation.Validator, opts ...Option) CustomerRepository {
	return &customerRepository{base: newBase(db, validate, opts...)}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	customer.PrepareForInsert(r.now())
	if err := r.validate.Struct(customer); err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO customers (` + customerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.TotalAmount,
		customer.DateOfAmountTaken,
		customer.DayOfAmountTaken,
		customer.WeeklyAmount,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := r.db.Rebind(`
		SELECT ` + customerColumns + `
		FROM customers
		WHERE id = ?
	`)

	var customer domain.Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapCustomerNotFound(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		ORDER BY created_at DESC, name
	`

	customers := []*domain.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	customer.PrepareForUpdate(r.now())
	if err := r.validate.Struct(customer); err != nil {
		return err
	}

	query := r.db.Rebind(`
		UPDATE customers
		SET name = ?, phone = ?, total_amount = ?, date_of_amount_taken = ?,
			day_of_amount_taken = ?, weekly_amount = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		customer.Name,
		customer.Phone,
		customer.TotalAmount,
		customer.DateOfAmountTaken,
		customer.DayOfAmountTaken,
		customer.WeeklyAmount,
		customer.UpdatedAt,
		customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return requireAffected(result, customError.WrapCustomerNotFound(customer.ID.String()))
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM payments WHERE customer_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete customer payments: %w", err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM customers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if err = requireAffected(result, customError.WrapCustomerNotFound(id.String())); err != nil {
		return err
	}

	return tx.Commit()
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

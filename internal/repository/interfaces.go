package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/payment-tracker/internal/domain"
)

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// Create prepares, validates and inserts a new customer
	Create(ctx context.Context, customer *domain.Customer) error

	// GetByID retrieves a customer by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)

	// List retrieves all customers, newest first
	List(ctx context.Context) ([]*domain.Customer, error)

	// Update prepares, validates and stores an existing customer
	Update(ctx context.Context, customer *domain.Customer) error

	// Delete removes a customer together with all of its payments
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create prepares, validates and inserts a payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// CreateSchedule inserts a batch of payments in one transaction
	CreateSchedule(ctx context.Context, payments []*domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByCustomerID retrieves all payments of a customer ordered by week
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error)

	// Update prepares, validates and stores an existing payment
	Update(ctx context.Context, payment *domain.Payment) error

	// GetDueBefore gets DUE payments scheduled strictly before asOf
	GetDueBefore(ctx context.Context, asOf domain.Date) ([]*domain.Payment, error)

	// GetTotalPaid sums the amounts of a customer's PAID payments
	GetTotalPaid(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	// CountByCustomerID counts the payments referencing a customer
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int, error)
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/payment-tracker/pkg/utils"
)

// InstallmentWeeks is the fixed length of every repayment schedule.
const InstallmentWeeks = 10

// Customer owes TotalAmount, repaid in InstallmentWeeks weekly installments.
//
// DayOfAmountTaken and WeeklyAmount are derived from DateOfAmountTaken and
// TotalAmount. The setters keep them in step; PrepareForUpdate corrects any
// direct write before the row is stored.
type Customer struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	Name              string              `json:"name" db:"name" validate:"notblank"`
	Phone             string              `json:"phone" db:"phone" validate:"notblank"`
	TotalAmount       decimal.NullDecimal `json:"total_amount" db:"total_amount" validate:"present,positive"`
	DateOfAmountTaken Date                `json:"date_of_amount_taken" db:"date_of_amount_taken" validate:"required"`
	DayOfAmountTaken  string              `json:"day_of_amount_taken" db:"day_of_amount_taken"`
	WeeklyAmount      decimal.NullDecimal `json:"weekly_amount" db:"weekly_amount"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// NewCustomer builds a customer with its derived fields filled in.
// Nothing is persisted.
func NewCustomer(name, phone string, totalAmount decimal.Decimal, dateOfAmountTaken Date) *Customer {
	now := time.Now()
	c := &Customer{
		ID:                uuid.New(),
		Name:              name,
		Phone:             phone,
		TotalAmount:       decimal.NewNullDecimal(totalAmount),
		DateOfAmountTaken: dateOfAmountTaken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.deriveDay()
	c.deriveWeeklyAmount()
	return c
}

// SetTotalAmount stores amount and recomputes WeeklyAmount when amount is present.
// An absent amount leaves the previous WeeklyAmount in place.
func (c *Customer) SetTotalAmount(amount decimal.NullDecimal) {
	c.TotalAmount = amount
	c.deriveWeeklyAmount()
}

// SetDateOfAmountTaken stores date and recomputes DayOfAmountTaken when date is present.
func (c *Customer) SetDateOfAmountTaken(date Date) {
	c.DateOfAmountTaken = date
	c.deriveDay()
}

// PrepareForInsert runs immediately before the first write of c.
func (c *Customer) PrepareForInsert(now time.Time) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.DayOfAmountTaken == "" {
		c.deriveDay()
	}
	if !c.WeeklyAmount.Valid {
		c.deriveWeeklyAmount()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
}

// PrepareForUpdate runs immediately before every later write of c.
func (c *Customer) PrepareForUpdate(now time.Time) {
	c.UpdatedAt = now
	c.deriveDay()
	c.deriveWeeklyAmount()
}

func (c *Customer) deriveDay() {
	if c.DateOfAmountTaken.Valid {
		c.DayOfAmountTaken = utils.WeekdayName(c.DateOfAmountTaken.Time)
	}
}

func (c *Customer) deriveWeeklyAmount() {
	if c.TotalAmount.Valid {
		c.WeeklyAmount = decimal.NewNullDecimal(utils.CalculateWeeklyAmount(c.TotalAmount.Decimal, InstallmentWeeks))
	}
}

// DTOs for requests

// CreateCustomerRequest keeps TotalAmount nullable so a missing amount is told
// apart from a zero one.
type CreateCustomerRequest struct {
	Name              string              `json:"name"`
	Phone             string              `json:"phone"`
	TotalAmount       decimal.NullDecimal `json:"total_amount"`
	DateOfAmountTaken Date                `json:"date_of_amount_taken"`
}

// UpdateCustomerRequest carries a partial update; nil fields are left unchanged.
type UpdateCustomerRequest struct {
	Name              *string          `json:"name,omitempty"`
	Phone             *string          `json:"phone,omitempty"`
	TotalAmount       *decimal.Decimal `json:"total_amount,omitempty"`
	DateOfAmountTaken *Date            `json:"date_of_amount_taken,omitempty"`
}

type OutstandingResponse struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

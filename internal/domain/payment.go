package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusDue    PaymentStatus = "DUE"
	PaymentStatusMissed PaymentStatus = "MISSED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusDue, PaymentStatusMissed:
		return true
	}
	return false
}

// Payment is one weekly installment of a customer's schedule.
type Payment struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	CustomerID  uuid.UUID           `json:"customer_id" db:"customer_id" validate:"required"`
	PaymentDate Date                `json:"payment_date" db:"payment_date" validate:"required"`
	Amount      decimal.NullDecimal `json:"amount" db:"amount" validate:"present,positive"`
	Status      PaymentStatus       `json:"status" db:"status" validate:"oneof=PAID DUE MISSED"`
	WeekNumber  int                 `json:"week_number" db:"week_number" validate:"required,gt=0"`
	PaidDate    Date                `json:"paid_date" db:"paid_date"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// NewPayment builds a payment owned by customer. PaidDate is left unset even
// when status is PAID; only SetStatus stamps it.
func NewPayment(paymentDate Date, amount decimal.Decimal, status PaymentStatus, weekNumber int, customer *Customer) *Payment {
	now := time.Now()
	p := &Payment{
		ID:          uuid.New(),
		PaymentDate: paymentDate,
		Amount:      decimal.NewNullDecimal(amount),
		Status:      status,
		WeekNumber:  weekNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if customer != nil {
		p.CustomerID = customer.ID
	}
	return p
}

// SetStatus moves the payment to status, stamping PaidDate with today on
// entry to PAID.
func (p *Payment) SetStatus(status PaymentStatus) {
	p.SetStatusAt(status, time.Now())
}

// SetStatusAt is SetStatus with an explicit clock. A PAID payment that already
// has a PaidDate keeps it; any other status clears it.
func (p *Payment) SetStatusAt(status PaymentStatus, now time.Time) {
	p.Status = status
	if status != PaymentStatusPaid {
		p.PaidDate = Date{}
		return
	}
	if !p.PaidDate.Valid {
		p.PaidDate = DateOf(now)
	}
}

// PrepareForInsert runs immediately before the first write of p.
func (p *Payment) PrepareForInsert(now time.Time) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
}

// PrepareForUpdate runs immediately before every later write of p.
func (p *Payment) PrepareForUpdate(now time.Time) {
	p.UpdatedAt = now
}

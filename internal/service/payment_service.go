package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/payment-tracker/internal/cache"
	"github.com/segyhp/payment-tracker/internal/config"
	"github.com/segyhp/payment-tracker/internal/domain"
	"github.com/segyhp/payment-tracker/internal/repository"
	customError "github.com/segyhp/payment-tracker/pkg/errors"
	"github.com/segyhp/payment-tracker/pkg/utils"
)

// CustomerCache is the read-through cache in front of the customer repository.
type CustomerCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	Set(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PaymentService struct {
	CustomerRepo repository.CustomerRepository
	PaymentRepo  repository.PaymentRepository
	cache        CustomerCache
	config       *config.Config
	log          *logrus.Logger
	now          func() time.Time
}

// NewPaymentService wires the service. customerCache may be nil to disable caching.
func NewPaymentService(
	customerRepo repository.CustomerRepository,
	paymentRepo repository.PaymentRepository,
	customerCache CustomerCache,
	config *config.Config,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		CustomerRepo: customerRepo,
		PaymentRepo:  paymentRepo,
		cache:        customerCache,
		config:       config,
		log:          log,
		now:          time.Now,
	}
}

// CreateCustomer creates a new customer with its weekly payment schedule
func (s *PaymentService) CreateCustomer(ctx context.Context, request *domain.CreateCustomerRequest) (*domain.Customer, []*domain.Payment, error) {
	customer := domain.NewCustomer(request.Name, request.Phone, request.TotalAmount.Decimal, request.DateOfAmountTaken)
	// an absent amount stays absent so validation reports it as required
	customer.SetTotalAmount(request.TotalAmount)

	if err := s.CustomerRepo.Create(ctx, customer); err != nil {
		return nil, nil, wrap(err)
	}

	schedule := BuildSchedule(customer)
	if err := s.PaymentRepo.CreateSchedule(ctx, schedule); err != nil {
		// the customer row is useless without its schedule
		if delErr := s.CustomerRepo.Delete(ctx, customer.ID); delErr != nil {
			s.log.WithError(delErr).WithField("customer_id", customer.ID).Error("failed to remove customer after schedule error")
		}
		return nil, nil, wrap(err)
	}

	s.log.WithFields(logrus.Fields{
		"customer_id":   customer.ID,
		"total_amount":  customer.TotalAmount.Decimal.String(),
		"weekly_amount": customer.WeeklyAmount.Decimal.String(),
	}).Info("customer created")

	return customer, schedule, nil
}

// BuildSchedule returns the InstallmentWeeks DUE payments of customer.
// Week n falls 7*n days after the date the amount was taken.
func BuildSchedule(customer *domain.Customer) []*domain.Payment {
	schedule := make([]*domain.Payment, 0, domain.InstallmentWeeks)
	for week := 1; week <= domain.InstallmentWeeks; week++ {
		schedule = append(schedule, domain.NewPayment(
			domain.DateOf(utils.CalculateDueDate(customer.DateOfAmountTaken.Time, week)),
			customer.WeeklyAmount.Decimal,
			domain.PaymentStatusDue,
			week,
			customer,
		))
	}
	return schedule
}

// GetCustomer returns a customer, served from cache when possible
func (s *PaymentService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if s.cache != nil {
		customer, err := s.cache.Get(ctx, id)
		if err == nil {
			return customer, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(customError.WrapCacheError(err)).Warn("customer cache read failed")
		}
	}

	customer, err := s.CustomerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, customer); err != nil {
			s.log.WithError(customError.WrapCacheError(err)).Warn("customer cache write failed")
		}
	}

	return customer, nil
}

func (s *PaymentService) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	customers, err := s.CustomerRepo.List(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return customers, nil
}

// UpdateCustomer applies a partial update through the customer setters
func (s *PaymentService) UpdateCustomer(ctx context.Context, id uuid.UUID, request *domain.UpdateCustomerRequest) (*domain.Customer, error) {
	customer, err := s.CustomerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}

	if request.Name != nil {
		customer.Name = *request.Name
	}
	if request.Phone != nil {
		customer.Phone = *request.Phone
	}
	if request.TotalAmount != nil {
		customer.SetTotalAmount(decimal.NewNullDecimal(*request.TotalAmount))
	}
	if request.DateOfAmountTaken != nil {
		customer.SetDateOfAmountTaken(*request.DateOfAmountTaken)
	}

	if err := s.CustomerRepo.Update(ctx, customer); err != nil {
		return nil, wrap(err)
	}
	s.invalidate(ctx, id)

	return customer, nil
}

// DeleteCustomer removes a customer and every payment it owns
func (s *PaymentService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if err := s.CustomerRepo.Delete(ctx, id); err != nil {
		return wrap(err)
	}
	s.invalidate(ctx, id)

	s.log.WithField("customer_id", id).Info("customer deleted")
	return nil
}

// ListPayments returns the payment schedule of a customer
func (s *PaymentService) ListPayments(ctx context.Context, customerID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.CustomerRepo.GetByID(ctx, customerID); err != nil {
		return nil, wrap(err)
	}

	payments, err := s.PaymentRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, wrap(err)
	}
	return payments, nil
}

// UpdatePaymentStatus moves a payment to status, keeping PaidDate in step
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.IsValid() {
		return nil, customError.WrapInvalidStatus(string(status))
	}

	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, wrap(err)
	}

	payment.SetStatusAt(status, s.now())

	if err := s.PaymentRepo.Update(ctx, payment); err != nil {
		return nil, wrap(err)
	}

	s.log.WithFields(logrus.Fields{
		"payment_id":  payment.ID,
		"customer_id": payment.CustomerID,
		"week_number": payment.WeekNumber,
		"status":      payment.Status,
	}).Info("payment status updated")

	return payment, nil
}

// GetOutstanding calculates the amount a customer still owes
func (s *PaymentService) GetOutstanding(ctx context.Context, customerID uuid.UUID) (*domain.OutstandingResponse, error) {
	customer, err := s.CustomerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, wrap(err)
	}

	totalPaid, err := s.PaymentRepo.GetTotalPaid(ctx, customerID)
	if err != nil {
		return nil, wrap(err)
	}

	// Outstanding = Total Amount - Total Paid, never below zero
	outstanding := customer.TotalAmount.Decimal.Sub(totalPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &domain.OutstandingResponse{
		CustomerID:  customer.ID,
		TotalAmount: customer.TotalAmount.Decimal,
		TotalPaid:   totalPaid,
		Outstanding: outstanding,
	}, nil
}

// MarkMissedPayments moves every DUE payment whose date plus the grace
// period lies before asOf to MISSED. It returns how many were updated.
func (s *PaymentService) MarkMissedPayments(ctx context.Context, asOf time.Time) (int, error) {
	graceDays := 0
	if s.config != nil {
		graceDays = s.config.Business.MissedGraceDays
	}
	cutoff := domain.DateOf(asOf).AddDays(-graceDays)

	payments, err := s.PaymentRepo.GetDueBefore(ctx, cutoff)
	if err != nil {
		return 0, wrap(err)
	}

	var errs []error
	marked := 0
	for _, payment := range payments {
		payment.SetStatusAt(domain.PaymentStatusMissed, asOf)
		if err := s.PaymentRepo.Update(ctx, payment); err != nil {
			s.log.WithError(err).WithField("payment_id", payment.ID).Error("failed to mark payment missed")
			errs = append(errs, err)
			continue
		}
		marked++
	}

	s.log.WithFields(logrus.Fields{
		"cutoff": cutoff.String(),
		"marked": marked,
		"failed": len(errs),
	}).Info("missed payment sweep finished")

	if len(errs) > 0 {
		return marked, wrap(errors.Join(errs...))
	}
	return marked, nil
}

func (s *PaymentService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WithError(customError.WrapCacheError(err)).WithField("customer_id", id).Warn("customer cache invalidation failed")
	}
}

// wrap leaves business errors untouched and marks everything else as a database failure
func wrap(err error) error {
	var bErr *customError.BusinessError
	if errors.As(err, &bErr) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

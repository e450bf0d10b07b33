package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/payment-tracker/internal/cache"
	"github.com/segyhp/payment-tracker/internal/config"
	"github.com/segyhp/payment-tracker/internal/domain"
	"github.com/segyhp/payment-tracker/internal/mocks"
	customError "github.com/segyhp/payment-tracker/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC)

type serviceFixture struct {
	customers *mocks.MockCustomerRepository
	payments  *mocks.MockPaymentRepository
	cache     *mocks.MockCustomerCache
	service   *PaymentService
}

func newFixture(t *testing.T, withCache bool, graceDays int) *serviceFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &serviceFixture{
		customers: &mocks.MockCustomerRepository{},
		payments:  &mocks.MockPaymentRepository{},
		cache:     &mocks.MockCustomerCache{},
	}

	cfg := &config.Config{Business: config.BusinessConfig{MissedGraceDays: graceDays}}

	var customerCache CustomerCache
	if withCache {
		customerCache = f.cache
	}
	f.service = NewPaymentService(f.customers, f.payments, customerCache, cfg, log)
	f.service.now = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		f.customers.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})
	return f
}

func sampleCustomer() *domain.Customer {
	return domain.NewCustomer("Budi", "08123456789", decimal.NewFromInt(1000), domain.NewDate(2024, 1, 1))
}

func TestCreateCustomer_Success(t *testing.T) {
	f := newFixture(t, false, 0)

	request := &domain.CreateCustomerRequest{
		Name:              "Budi",
		Phone:             "08123456789",
		TotalAmount:       decimal.NewNullDecimal(decimal.NewFromInt(1005)),
		DateOfAmountTaken: domain.NewDate(2024, 1, 1),
	}

	f.customers.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Customer) bool {
		return c.Name == "Budi" && c.DayOfAmountTaken == "MONDAY"
	})).Return(nil)

	f.payments.On("CreateSchedule", mock.Anything, mock.MatchedBy(func(schedule []*domain.Payment) bool {
		return len(schedule) == domain.InstallmentWeeks
	})).Return(nil)

	customer, schedule, err := f.service.CreateCustomer(context.Background(), request)

	require.NoError(t, err)
	assert.True(t, customer.WeeklyAmount.Decimal.Equal(decimal.NewFromInt(101)))
	assert.Len(t, schedule, domain.InstallmentWeeks)
	for _, p := range schedule {
		assert.Equal(t, customer.ID, p.CustomerID)
		assert.Equal(t, domain.PaymentStatusDue, p.Status)
	}
}

func TestCreateCustomer_ValidationFailure(t *testing.T) {
	f := newFixture(t, false, 0)

	rejected := customError.WrapValidation([]customError.FieldError{{Field: "name", Message: "Name is required"}})
	f.customers.On("Create", mock.Anything, mock.Anything).Return(rejected)

	customer, schedule, err := f.service.CreateCustomer(context.Background(), &domain.CreateCustomerRequest{
		TotalAmount:       decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		DateOfAmountTaken: domain.NewDate(2024, 1, 1),
	})

	assert.Nil(t, customer)
	assert.Nil(t, schedule)
	assert.ErrorIs(t, err, customError.ErrValidation)

	vErr, ok := customError.AsValidation(err)
	require.True(t, ok)
	assert.True(t, vErr.HasField("name"))
	f.payments.AssertNotCalled(t, "CreateSchedule", mock.Anything, mock.Anything)
}

func TestCreateCustomer_ScheduleFailureRemovesCustomer(t *testing.T) {
	f := newFixture(t, false, 0)

	var createdID uuid.UUID
	f.customers.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { createdID = args.Get(1).(*domain.Customer).ID }).
		Return(nil)
	f.payments.On("CreateSchedule", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	f.customers.On("Delete", mock.Anything, mock.MatchedBy(func(id uuid.UUID) bool {
		return id == createdID
	})).Return(nil)

	_, _, err := f.service.CreateCustomer(context.Background(), &domain.CreateCustomerRequest{
		Name:              "Budi",
		Phone:             "0812",
		TotalAmount:       decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		DateOfAmountTaken: domain.NewDate(2024, 1, 1),
	})

	var bErr *customError.BusinessError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, customError.ErrCodeDatabaseError, bErr.Code)
}

func TestBuildSchedule(t *testing.T) {
	customer := sampleCustomer()

	schedule := BuildSchedule(customer)

	require.Len(t, schedule, domain.InstallmentWeeks)
	assert.True(t, schedule[0].PaymentDate.Equal(domain.NewDate(2024, 1, 8)))
	assert.True(t, schedule[9].PaymentDate.Equal(domain.NewDate(2024, 3, 11)))
	for i, p := range schedule {
		assert.Equal(t, i+1, p.WeekNumber)
		assert.True(t, p.Amount.Decimal.Equal(decimal.NewFromInt(100)))
		assert.False(t, p.PaidDate.Valid)
	}
}

func TestGetCustomer(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *serviceFixture, c *domain.Customer)
	}{
		{
			name: "cache hit skips repository",
			setup: func(f *serviceFixture, c *domain.Customer) {
				f.cache.On("Get", mock.Anything, c.ID).Return(c, nil)
			},
		},
		{
			name: "cache miss loads and fills cache",
			setup: func(f *serviceFixture, c *domain.Customer) {
				f.cache.On("Get", mock.Anything, c.ID).Return(nil, cache.ErrMiss)
				f.customers.On("GetByID", mock.Anything, c.ID).Return(c, nil)
				f.cache.On("Set", mock.Anything, c).Return(nil)
			},
		},
		{
			name: "cache failure falls back to repository",
			setup: func(f *serviceFixture, c *domain.Customer) {
				f.cache.On("Get", mock.Anything, c.ID).Return(nil, errors.New("connection refused"))
				f.customers.On("GetByID", mock.Anything, c.ID).Return(c, nil)
				f.cache.On("Set", mock.Anything, c).Return(errors.New("connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true, 0)
			customer := sampleCustomer()
			tt.setup(f, customer)

			got, err := f.service.GetCustomer(context.Background(), customer.ID)

			require.NoError(t, err)
			assert.Equal(t, customer.ID, got.ID)
		})
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	f := newFixture(t, false, 0)
	id := uuid.New()

	f.customers.On("GetByID", mock.Anything, id).Return(nil, customError.WrapCustomerNotFound(id.String()))

	got, err := f.service.GetCustomer(context.Background(), id)

	assert.Nil(t, got)
	assert.ErrorIs(t, err, customError.ErrCustomerNotFound)
}

func TestUpdateCustomer_RederivesAndInvalidates(t *testing.T) {
	f := newFixture(t, true, 0)
	customer := sampleCustomer()

	newTotal := decimal.NewFromInt(2001)
	newDate := domain.NewDate(2024, 1, 3)
	newName := "Budi Santoso"

	f.customers.On("GetByID", mock.Anything, customer.ID).Return(customer, nil)
	f.customers.On("Update", mock.Anything, customer).Return(nil)
	f.cache.On("Delete", mock.Anything, customer.ID).Return(nil)

	got, err := f.service.UpdateCustomer(context.Background(), customer.ID, &domain.UpdateCustomerRequest{
		Name:              &newName,
		TotalAmount:       &newTotal,
		DateOfAmountTaken: &newDate,
	})

	require.NoError(t, err)
	assert.Equal(t, newName, got.Name)
	assert.Equal(t, "08123456789", got.Phone)
	assert.True(t, got.WeeklyAmount.Decimal.Equal(decimal.NewFromInt(201)))
	assert.Equal(t, "WEDNESDAY", got.DayOfAmountTaken)
}

func TestDeleteCustomer(t *testing.T) {
	t.Run("invalidates cache", func(t *testing.T) {
		f := newFixture(t, true, 0)
		id := uuid.New()

		f.customers.On("Delete", mock.Anything, id).Return(nil)
		f.cache.On("Delete", mock.Anything, id).Return(nil)

		assert.NoError(t, f.service.DeleteCustomer(context.Background(), id))
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t, true, 0)
		id := uuid.New()

		f.customers.On("Delete", mock.Anything, id).Return(customError.WrapCustomerNotFound(id.String()))

		err := f.service.DeleteCustomer(context.Background(), id)
		assert.ErrorIs(t, err, customError.ErrCustomerNotFound)
		f.cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestListPayments_UnknownCustomer(t *testing.T) {
	f := newFixture(t, false, 0)
	id := uuid.New()

	f.customers.On("GetByID", mock.Anything, id).Return(nil, customError.WrapCustomerNotFound(id.String()))

	payments, err := f.service.ListPayments(context.Background(), id)

	assert.Nil(t, payments)
	assert.ErrorIs(t, err, customError.ErrCustomerNotFound)
	f.payments.AssertNotCalled(t, "GetByCustomerID", mock.Anything, mock.Anything)
}

func TestUpdatePaymentStatus(t *testing.T) {
	tests := []struct {
		name         string
		initial      domain.PaymentStatus
		initialPaid  domain.Date
		target       domain.PaymentStatus
		expectedPaid domain.Date
	}{
		{
			name:         "due to paid stamps today",
			initial:      domain.PaymentStatusDue,
			target:       domain.PaymentStatusPaid,
			expectedPaid: domain.DateOf(fixedNow),
		},
		{
			name:         "paid to paid keeps original date",
			initial:      domain.PaymentStatusPaid,
			initialPaid:  domain.NewDate(2024, 1, 8),
			target:       domain.PaymentStatusPaid,
			expectedPaid: domain.NewDate(2024, 1, 8),
		},
		{
			name:        "paid to missed clears date",
			initial:     domain.PaymentStatusPaid,
			initialPaid: domain.NewDate(2024, 1, 8),
			target:      domain.PaymentStatusMissed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, 0)
			payment := domain.NewPayment(domain.NewDate(2024, 1, 8), decimal.NewFromInt(100), tt.initial, 1, sampleCustomer())
			payment.PaidDate = tt.initialPaid

			f.payments.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
			f.payments.On("Update", mock.Anything, payment).Return(nil)

			got, err := f.service.UpdatePaymentStatus(context.Background(), payment.ID, tt.target)

			require.NoError(t, err)
			assert.Equal(t, tt.target, got.Status)
			assert.Equal(t, tt.expectedPaid.Valid, got.PaidDate.Valid)
			if tt.expectedPaid.Valid {
				assert.True(t, got.PaidDate.Equal(tt.expectedPaid))
			}
		})
	}
}

func TestUpdatePaymentStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t, false, 0)

	got, err := f.service.UpdatePaymentStatus(context.Background(), uuid.New(), domain.PaymentStatus("LATE"))

	assert.Nil(t, got)
	assert.ErrorIs(t, err, customError.ErrInvalidStatus)
	f.payments.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetOutstanding(t *testing.T) {
	tests := []struct {
		name        string
		totalPaid   decimal.Decimal
		outstanding decimal.Decimal
	}{
		{"nothing paid", decimal.Zero, decimal.NewFromInt(1000)},
		{"partially paid", decimal.NewFromInt(300), decimal.NewFromInt(700)},
		{"overpaid floors at zero", decimal.NewFromInt(1100), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, 0)
			customer := sampleCustomer()

			f.customers.On("GetByID", mock.Anything, customer.ID).Return(customer, nil)
			f.payments.On("GetTotalPaid", mock.Anything, customer.ID).Return(tt.totalPaid, nil)

			got, err := f.service.GetOutstanding(context.Background(), customer.ID)

			require.NoError(t, err)
			assert.True(t, got.Outstanding.Equal(tt.outstanding), "got %s", got.Outstanding)
			assert.True(t, got.TotalPaid.Equal(tt.totalPaid))
		})
	}
}

func TestMarkMissedPayments(t *testing.T) {
	tests := []struct {
		name      string
		graceDays int
		cutoff    domain.Date
	}{
		{"no grace period", 0, domain.NewDate(2024, 3, 20)},
		{"three day grace period", 3, domain.NewDate(2024, 3, 17)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, tt.graceDays)
			customer := sampleCustomer()
			due := []*domain.Payment{
				domain.NewPayment(domain.NewDate(2024, 1, 8), decimal.NewFromInt(100), domain.PaymentStatusDue, 1, customer),
				domain.NewPayment(domain.NewDate(2024, 1, 15), decimal.NewFromInt(100), domain.PaymentStatusDue, 2, customer),
			}

			f.payments.On("GetDueBefore", mock.Anything, mock.MatchedBy(func(d domain.Date) bool {
				return d.Equal(tt.cutoff)
			})).Return(due, nil)
			f.payments.On("Update", mock.Anything, mock.Anything).Return(nil).Twice()

			marked, err := f.service.MarkMissedPayments(context.Background(), fixedNow)

			require.NoError(t, err)
			assert.Equal(t, 2, marked)
			for _, p := range due {
				assert.Equal(t, domain.PaymentStatusMissed, p.Status)
				assert.False(t, p.PaidDate.Valid)
			}
		})
	}
}

func TestMarkMissedPayments_PartialFailure(t *testing.T) {
	f := newFixture(t, false, 0)
	customer := sampleCustomer()
	first := domain.NewPayment(domain.NewDate(2024, 1, 8), decimal.NewFromInt(100), domain.PaymentStatusDue, 1, customer)
	second := domain.NewPayment(domain.NewDate(2024, 1, 15), decimal.NewFromInt(100), domain.PaymentStatusDue, 2, customer)

	f.payments.On("GetDueBefore", mock.Anything, mock.Anything).Return([]*domain.Payment{first, second}, nil)
	f.payments.On("Update", mock.Anything, first).Return(errors.New("deadlock"))
	f.payments.On("Update", mock.Anything, second).Return(nil)

	marked, err := f.service.MarkMissedPayments(context.Background(), fixedNow)

	assert.Equal(t, 1, marked)
	var bErr *customError.BusinessError
	require.ErrorAs(t, err, &bErr)
	assert.Equal(t, customError.ErrCodeDatabaseError, bErr.Code)
}

func TestListCustomers(t *testing.T) {
	f := newFixture(t, false, 0)
	customers := []*domain.Customer{sampleCustomer(), sampleCustomer()}

	f.customers.On("List", mock.Anything).Return(customers, nil)

	got, err := f.service.ListCustomers(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListPayments(t *testing.T) {
	f := newFixture(t, false, 0)
	customer := sampleCustomer()
	schedule := BuildSchedule(customer)

	f.customers.On("GetByID", mock.Anything, customer.ID).Return(customer, nil)
	f.payments.On("GetByCustomerID", mock.Anything, customer.ID).Return(schedule, nil)

	got, err := f.service.ListPayments(context.Background(), customer.ID)

	require.NoError(t, err)
	assert.Len(t, got, domain.InstallmentWeeks)
}

func TestCreateCustomer_MissingTotalAmountStaysAbsent(t *testing.T) {
	f := newFixture(t, false, 0)

	rejected := customError.WrapValidation([]customError.FieldError{{Field: "total_amount", Message: "Total amount is required"}})
	f.customers.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Customer) bool {
		return !c.TotalAmount.Valid
	})).Return(rejected)

	_, _, err := f.service.CreateCustomer(context.Background(), &domain.CreateCustomerRequest{
		Name:              "Budi",
		Phone:             "0812",
		DateOfAmountTaken: domain.NewDate(2024, 1, 1),
	})

	vErr, ok := customError.AsValidation(err)
	require.True(t, ok)
	assert.True(t, vErr.HasField("total_amount"))
}

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/payment-tracker/internal/config"
)

// MissedPaymentMarker flips overdue DUE payments to MISSED.
type MissedPaymentMarker interface {
	MarkMissedPayments(ctx context.Context, asOf time.Time) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	marker  MissedPaymentMarker
	log     *logrus.Logger
	timeout time.Duration
	now     func() time.Time
}

// New builds a scheduler running in the configured time zone.
func New(cfg *config.Config, marker MissedPaymentMarker, log *logrus.Logger) (*Scheduler, error) {
	loc := cfg.GetSchedulerLocation()

	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		marker:  marker,
		log:     log,
		timeout: 5 * time.Minute,
		now:     func() time.Time { return time.Now().In(loc) },
	}

	// Daily job to mark missed payments
	if _, err := s.cron.AddFunc(cfg.Scheduler.MissedSpec, s.RunMissedPayments); err != nil {
		return nil, err
	}

	return s, nil
}

// RunMissedPayments runs one missed payment sweep as of now.
func (s *Scheduler) RunMissedPayments() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	asOf := s.now()
	entry := s.log.WithField("job", "missed_payments").WithField("as_of", asOf.Format(time.RFC3339))
	entry.Info("running missed payment job")

	marked, err := s.marker.MarkMissedPayments(ctx, asOf)
	if err != nil {
		entry.WithError(err).WithField("marked", marked).Error("missed payment job failed")
		return
	}
	entry.WithField("marked", marked).Info("missed payment job finished")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

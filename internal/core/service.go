// Package core implements the fish accounting and tank topology operations on
// top of the transactional persistence layer.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/tytell/fishdb/internal/infra/persistence/memory"
	"github.com/tytell/fishdb/pkg/domain"
)

// Service exposes the husbandry record-keeping operations. Every mutating
// operation takes an explicit session and runs inside a single store
// transaction, so compound writes commit atomically or not at all.
type Service struct {
	store     domain.PersistentStore
	reference *referenceCache
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	now       func() time.Time
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  NopLogger{},
		metrics: nopMetrics{},
		tracer:  nopTracer{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reference = newReferenceCache(store)
	return s
}

// NewInMemoryService creates a service over an in-memory store with the given
// rules engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// begin opens a span and returns a finish function that records the outcome.
func (s *Service) begin(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.now()
	return ctx, func(err error) {
		duration := s.now().Sub(start)
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, duration)
		if err != nil {
			s.logger.Warn("operation failed", "operation", operation, "error", err)
		} else {
			s.logger.Debug("operation complete", "operation", operation, "duration", duration)
		}
	}
}

// logWarnings reports warn-severity violations from a committed transaction.
func (s *Service) logWarnings(operation string, res domain.Result) {
	for _, v := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", operation, "rule", v.Rule, "entity", v.EntityID, "message", v.Message)
	}
}

// eventDate returns the input date, or the current time when unset.
func (s *Service) eventDate(date time.Time) time.Time {
	if date.IsZero() {
		return s.now()
	}
	return date
}

// recordedBy resolves the display identity written into event logs.
func recordedBy(session domain.Session) string {
	if session.FullName != "" {
		return session.FullName
	}
	return session.PersonID
}

// IsValidation reports whether err is a user-correctable validation failure.
func IsValidation(err error) bool {
	var verr domain.ValidationError
	return errors.As(err, &verr)
}

// GetFish returns one fish record by id.
func (s *Service) GetFish(_ context.Context, id string) (domain.Fish, error) {
	fish, ok := s.store.GetFish(id)
	if !ok {
		return domain.Fish{}, domain.ErrNotFound{Entity: domain.EntityFish, ID: id}
	}
	return fish, nil
}

// ListFish returns every fish record, retired included.
func (s *Service) ListFish(context.Context) []domain.Fish {
	return s.store.ListFish()
}

// ActiveFish returns the fish records that still account for living animals.
func (s *Service) ActiveFish(context.Context) []domain.Fish {
	var out []domain.Fish
	for _, fish := range s.store.ListFish() {
		if fish.Alive() {
			out = append(out, fish)
		}
	}
	return out
}

// ListTanks returns every tank.
func (s *Service) ListTanks(context.Context) []domain.Tank {
	return s.store.ListTanks()
}

// ListGroupEvents returns the group accounting log in date order.
func (s *Service) ListGroupEvents(context.Context) []domain.GroupEvent {
	return s.store.ListGroupEvents()
}

// ListHealthEvents returns the health log in date order.
func (s *Service) ListHealthEvents(context.Context) []domain.HealthEvent {
	return s.store.ListHealthEvents()
}

// DeleteFish hard-deletes a fish record. Administrative escape hatch outside
// the normal lifecycle; requires admin access.
func (s *Service) DeleteFish(ctx context.Context, session domain.Session, id string) (domain.Result, error) {
	ctx, finish := s.begin(ctx, "delete_fish")
	var err error
	defer func() { finish(err) }()

	if err = session.RequireAccess(domain.AccessAdmin); err != nil {
		return domain.Result{}, err
	}
	var res domain.Result
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteFish(id)
	})
	if err == nil {
		s.logWarnings("delete_fish", res)
	}
	return res, err
}

// DeleteTank hard-deletes a tank record; requires admin access.
func (s *Service) DeleteTank(ctx context.Context, session domain.Session, name string) (domain.Result, error) {
	ctx, finish := s.begin(ctx, "delete_tank")
	var err error
	defer func() { finish(err) }()

	if err = session.RequireAccess(domain.AccessAdmin); err != nil {
		return domain.Result{}, err
	}
	var res domain.Result
	res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteTank(name)
	})
	if err == nil {
		s.reference.Invalidate(refTanks)
		s.logWarnings("delete_tank", res)
	}
	return res, err
}

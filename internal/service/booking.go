package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/queue"
	"github.com/iliyamo/party-booking/internal/repository"
)

var (
	// ErrDateTaken is returned by Create when the date already holds a booking.
	ErrDateTaken = errors.New("date already booked")
	// ErrReservationNotFound is returned when no backend knows the reservation.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrNoBackendAccepted is returned when every backend rejected a write.
	ErrNoBackendAccepted = errors.New("no backend accepted the write")
)

// EventPublisher delivers reservation events.  Failures never fail a booking.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// WriteOutcome is the result of one backend write.
type WriteOutcome struct {
	Source  string `json:"source"`
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteError carries the per-backend outcomes of a write that no backend
// accepted.
type WriteError struct {
	Op       string
	Outcomes []WriteOutcome
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, ErrNoBackendAccepted)
}

func (e *WriteError) Unwrap() error { return ErrNoBackendAccepted }

// Quote is the price of a package on a date.
type Quote struct {
	Date    string            `json:"date"`
	Package model.PackageTier `json:"packageTier"`
	Weekend bool              `json:"weekend"`
	Price   int64             `json:"price"`
}

// CreateResult describes an accepted booking.
type CreateResult struct {
	Reservation model.Reservation      `json:"reservation"`
	Warnings    model.ValidationErrors `json:"warnings,omitempty"`
	Outcomes    []WriteOutcome         `json:"outcomes"`
}

// SyncFailure is a write-back step that did not go through.
type SyncFailure struct {
	Source        string `json:"source"`
	ReservationID string `json:"reservationId"`
	Op            string `json:"op"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
}

// SyncReport summarises one execution of the write-back plan.
type SyncReport struct {
	Created     int                 `json:"created"`
	Updated     int                 `json:"updated"`
	Failed      []SyncFailure       `json:"failed"`
	Unavailable []SourceUnavailable `json:"unavailable"`
}

// BookingService is the caller side of the core: it validates and prices
// drafts, writes them to every backend and reads them back reconciled.
type BookingService struct {
	catalog    *Catalog
	validator  *Validator
	reconciler *Reconciler
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

// NewBookingService wires the service.  events may be nil.
func NewBookingService(catalog *Catalog, validator *Validator, reconciler *Reconciler, events EventPublisher, log *zap.Logger) *BookingService {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		catalog:    catalog,
		validator:  validator,
		reconciler: reconciler,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// Catalog lists the packages on offer.
func (s *BookingService) Catalog() []model.PackageDefinition { return s.catalog.Packages() }

// Quote prices tier on date.  tier may be any accepted display name.
func (s *BookingService) Quote(date, tier string) (Quote, error) {
	t, err := model.ParsePackageTier(tier)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %q", err, tier)
	}
	price, err := s.catalog.Price(date, t)
	if err != nil {
		return Quote{}, err
	}
	d, _ := model.ParseDate(date)
	return Quote{Date: d.Format(model.DateLayout), Package: t, Weekend: IsWeekend(d), Price: price}, nil
}

// Create validates d and writes the reservation to every backend.  It
// succeeds when at least one backend accepted it.
func (s *BookingService) Create(ctx context.Context, d Draft, allowDoubleBooking bool) (CreateResult, error) {
	v, err := s.validator.Validate(d)
	if err != nil {
		return CreateResult{}, err
	}
	r := v.Reservation

	if !allowDoubleBooking {
		current := s.reconciler.Reconcile(ctx)
		for _, existing := range current.Reservations {
			if existing.Date == r.Date {
				return CreateResult{}, fmt.Errorf("%w: %s is held by %s", ErrDateTaken, r.Date, existing.ID)
			}
		}
	}

	outcomes, ok := s.fanOut(ctx, "create", s.reconciler.Adapters(), func(ctx context.Context, a repository.Adapter) error {
		return a.Create(ctx, r)
	})
	if !ok {
		return CreateResult{}, &WriteError{Op: "create", Outcomes: outcomes}
	}

	s.log.Info("reservation created", zap.String("id", r.ID), zap.String("date", r.Date))
	s.publish(ctx, queue.EventCreated, r)
	return CreateResult{Reservation: r, Warnings: v.Warnings, Outcomes: outcomes}, nil
}

// List returns the reconciled view of every backend.
func (s *BookingService) List(ctx context.Context) Result {
	return s.reconciler.Reconcile(ctx)
}

// Get returns one reservation from the reconciled view.
func (s *BookingService) Get(ctx context.Context, id string) (model.Reservation, error) {
	for _, r := range s.reconciler.Reconcile(ctx).Reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Reservation{}, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
}

// MarkPaid settles the reservation in full and replaces it in every backend.
func (s *BookingService) MarkPaid(ctx context.Context, id string) (model.Reservation, []WriteOutcome, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, nil, err
	}
	paid := r.MarkPaid()

	outcomes, ok := s.fanOut(ctx, "update", s.reconciler.Adapters(), func(ctx context.Context, a repository.Adapter) error {
		return a.Update(ctx, paid)
	})
	if !ok {
		return model.Reservation{}, outcomes, &WriteError{Op: "mark paid", Outcomes: outcomes}
	}

	s.log.Info("reservation paid", zap.String("id", paid.ID))
	s.publish(ctx, queue.EventPaid, paid)
	return paid, outcomes, nil
}

// Delete removes the reservation from every backend.  Backends that never
// held it are not failures.
func (s *BookingService) Delete(ctx context.Context, id string) ([]WriteOutcome, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := repository.KeyOf(r)

	outcomes, _ := s.fanOut(ctx, "delete", s.reconciler.Adapters(), func(ctx context.Context, a repository.Adapter) error {
		return a.Delete(ctx, key)
	})
	deleted, failed := 0, 0
	for _, o := range outcomes {
		switch {
		case o.OK:
			deleted++
		case o.Kind != repository.KindName(repository.ErrNotFound):
			failed++
		}
	}
	if deleted == 0 {
		if failed == 0 {
			return outcomes, fmt.Errorf("%w: %s", ErrReservationNotFound, id)
		}
		return outcomes, &WriteError{Op: "delete", Outcomes: outcomes}
	}

	s.log.Info("reservation deleted", zap.String("id", r.ID), zap.Int("backends", deleted))
	s.publish(ctx, queue.EventDeleted, r)
	return outcomes, nil
}

// Sync executes the write-back plan: records are created where missing and
// replaced where stale.
func (s *BookingService) Sync(ctx context.Context) SyncReport {
	result := s.reconciler.Reconcile(ctx)
	report := SyncReport{Failed: []SyncFailure{}, Unavailable: result.Unavailable}

	byName := make(map[string]repository.Adapter, len(s.reconciler.Adapters()))
	for _, a := range s.reconciler.Adapters() {
		byName[a.Name()] = a
	}

	for _, wb := range result.Plan {
		steps := []struct {
			op      string
			sources []string
		}{
			{"create", wb.MissingFrom},
			{"update", wb.StaleIn},
		}
		for _, step := range steps {
			for _, name := range step.sources {
				a, ok := byName[name]
				if !ok {
					continue
				}
				err := s.call(ctx, func(ctx context.Context) error {
					if step.op == "create" {
						return a.Create(ctx, wb.Record)
					}
					return a.Update(ctx, wb.Record)
				})
				if err != nil {
					s.log.Warn("write-back failed",
						zap.String("source", name), zap.String("op", step.op),
						zap.String("id", wb.Record.ID), zap.Error(err))
					report.Failed = append(report.Failed, SyncFailure{
						Source: name, ReservationID: wb.Record.ID, Op: step.op,
						Kind: repository.KindName(err), Message: err.Error(),
					})
					continue
				}
				if step.op == "create" {
					report.Created++
				} else {
					report.Updated++
				}
			}
		}
	}
	s.log.Info("sync finished",
		zap.Int("created", report.Created), zap.Int("updated", report.Updated), zap.Int("failed", len(report.Failed)))
	return report
}

// Calendar reconciles the backends and lays out the month.
func (s *BookingService) Calendar(ctx context.Context, year int, month time.Month, today time.Time) ([]model.CalendarDay, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("month %d out of range", month)
	}
	return BuildMonth(year, month, s.reconciler.Reconcile(ctx).Reservations, today), nil
}

// fanOut runs fn against every adapter concurrently and reports whether at
// least one call succeeded.
func (s *BookingService) fanOut(ctx context.Context, op string, adapters []repository.Adapter, fn func(context.Context, repository.Adapter) error) ([]WriteOutcome, bool) {
	outcomes := make([]WriteOutcome, len(adapters))
	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			err := s.call(ctx, func(ctx context.Context) error { return fn(ctx, a) })
			outcomes[i] = WriteOutcome{Source: a.Name(), OK: err == nil}
			if err != nil {
				outcomes[i].Kind = repository.KindName(err)
				outcomes[i].Message = err.Error()
				s.log.Warn("backend write failed", zap.String("source", a.Name()), zap.String("op", op), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.OK {
			return outcomes, true
		}
	}
	return outcomes, false
}

func (s *BookingService) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.reconciler.Timeout())
	defer cancel()
	return fn(ctx)
}

func (s *BookingService) publish(ctx context.Context, t queue.EventType, r model.Reservation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, queue.NewEvent(t, r, s.now())); err != nil {
		s.log.Warn("publish event failed", zap.String("type", string(t)), zap.String("id", r.ID), zap.Error(err))
	}
}

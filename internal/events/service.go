// Package events owns the write rules for tracked events and ties the store
// to the countdown engine.
package events

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"timerdash/internal/countdown"
	appLog "timerdash/internal/log"
	"timerdash/internal/model"
	"timerdash/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError reports a rejected write. Message is safe to show to
// API clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Service is the event use-case layer: CRUD with server-side id and
// timestamp stamping, plus evaluation against the engine.
type Service struct {
	store store.Store
	eval  *countdown.Evaluator
	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(st store.Store, eval *countdown.Evaluator, opts ...Option) *Service {
	s := &Service{
		store: st,
		eval:  eval,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluator exposes the engine the service evaluates with.
func (s *Service) Evaluator() *countdown.Evaluator { return s.eval }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (model.Event, error) {
	return s.store.Get(ctx, id)
}

// Create validates ev, assigns a fresh id and creation time, and stores it.
// Client-supplied id and createdAt are ignored.
func (s *Service) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := prepare(&ev); err != nil {
		return model.Event{}, err
	}
	ev.ID = s.newID()
	ev.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.store.Create(ctx, ev); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event created", "id", ev.ID, "name", ev.Name, "repeating", ev.IsRepeating)
	return ev, nil
}

// Update replaces the stored event id with ev, keeping the original id and
// creation time.
func (s *Service) Update(ctx context.Context, id string, ev model.Event) (model.Event, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if err := prepare(&ev); err != nil {
		return model.Event{}, err
	}
	ev.ID = existing.ID
	ev.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, ev); err != nil {
		return model.Event{}, err
	}
	appLog.Info("event updated", "id", ev.ID, "name", ev.Name)
	return ev, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}

// Status evaluates one stored event at the given instant. surfaced reports
// whether the dashboard would show it as active.
func (s *Service) Status(ctx context.Context, id string, at time.Time) (entry countdown.Entry, surfaced bool, err error) {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		return countdown.Entry{}, false, err
	}
	entry, surfaced = s.eval.Describe(ev, at)
	return entry, surfaced, nil
}

// Dashboard evaluates every stored event at the given instant.
func (s *Service) Dashboard(ctx context.Context, at time.Time) (countdown.Dashboard, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return countdown.Dashboard{}, errors.Wrap(err, "load events")
	}
	return s.eval.BuildDashboard(list, at), nil
}

// prepare trims user-entered text and validates the record.
func prepare(ev *model.Event) error {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Recurrence != nil {
		ev.Recurrence.Type = model.RecurrenceType(strings.TrimSpace(string(ev.Recurrence.Type)))
	}
	if err := validate.Struct(ev); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate event")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return &ValidationError{Message: strings.Join(msgs, "; ")}
}

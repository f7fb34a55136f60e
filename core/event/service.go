package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crec/backoffice/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("event")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		// QueryEvents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Title, Description or Location.
		// QueryFilter.Period: upcoming = EndsAt >= Now, past = EndsAt < Now.
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		DeleteEventsByID(ctx context.Context, ids ...string) (int, error)
		CountEvents(ctx context.Context, filter *QueryFilter) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) check(e *Event) error {
	e.clean()
	if err := svc.validate.Struct(e); err != nil {
		return err
	}
	if e.EndsAt.Before(e.StartsAt) {
		return core.NewFieldError("ends_at", "must not be before starts_at")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	e := ne.event()
	if err := svc.check(&e); err != nil {
		return Event{}, err
	}
	now := nowFunc().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	return svc.repo.CreateEvent(ctx, e)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	if filter != nil {
		filter.Clean()
		if filter.Period != "" && filter.Period != PeriodUpcoming && filter.Period != PeriodPast {
			return nil, core.NewFieldError("period", "must be one of: upcoming, past")
		}
		filter.Now = nowFunc().UTC()
		// the closest events first
		if len(ordering) == 0 && filter.Period != "" {
			ordering = []core.DBOrdering{{Field: "starts_at", Ascending: filter.Period == PeriodUpcoming}}
		}
	}
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

// Upcoming lists up to `limit` published events that are not over yet, soonest first (0: no limit).
func (svc *Service) Upcoming(ctx context.Context, limit int) ([]Event, error) {
	list, err := svc.Query(ctx, &QueryFilter{Period: PeriodUpcoming, Published: core.BoolPtr(true)}, nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (svc *Service) CountUpcoming(ctx context.Context) (int, error) {
	return svc.repo.CountEvents(ctx, &QueryFilter{Period: PeriodUpcoming, Published: core.BoolPtr(true), Now: nowFunc().UTC()})
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

// GetPublished hides unpublished events from the public.
func (svc *Service) GetPublished(ctx context.Context, id string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !e.IsPublished {
		return Event{}, ErrNotFound
	}
	return e, nil
}

// AcceptsRegistrations reports whether the public may currently apply to `e`.
func (svc *Service) AcceptsRegistrations(e Event) bool {
	return e.AcceptsRegistrations(nowFunc())
}

func (svc *Service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	ue.apply(&e)
	if err = svc.check(&e); err != nil {
		return Event{}, err
	}
	e.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteEventsByID(ctx, ids...)
	return err
}

package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/storage/database"
)

const eventTable = "event"

var eventOrderings = map[string]string{
	"title":      "title",
	"type":       "type",
	"location":   "location",
	"starts_at":  "starts_at",
	"ends_at":    "ends_at",
	"capacity":   "capacity",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type eventRepository struct {
	repo
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *database.DB) *eventRepository {
	return &eventRepository{repo{db: db}}
}

func (repo eventRepository) values(e event.Event) map[string]interface{} {
	return map[string]interface{}{
		"title":             e.Title,
		"description":       e.Description,
		"type":              e.Type,
		"location":          e.Location,
		"starts_at":         e.StartsAt.UTC(),
		"ends_at":           e.EndsAt.UTC(),
		"capacity":          e.Capacity,
		"registration_open": e.RegistrationOpen,
		"image_url":         e.ImageURL,
		"tags":              e.Tags,
		"is_published":      e.IsPublished,
		"created_at":        e.CreatedAt.UTC(),
		"updated_at":        e.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) filter(b sq.SelectBuilder, filter *event.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return b
	}
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "title", "description", "location"))
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{"type": filter.Type})
	}
	switch filter.Period {
	case event.PeriodUpcoming:
		b = b.Where(sq.GtOrEq{"ends_at": filter.Now.UTC()})
	case event.PeriodPast:
		b = b.Where(sq.Lt{"ends_at": filter.Now.UTC()})
	}
	if filter.Tag != "" {
		b = b.Where(hasItem("tags", filter.Tag))
	}
	if filter.Published != nil {
		b = b.Where(sq.Eq{"is_published": *filter.Published})
	}
	return b
}

func (repo eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = newID()
	values := repo.values(e)
	values["id"] = e.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(eventTable).SetMap(values), "inserting event"); err != nil {
		return event.Event{}, err
	}
	return repo.GetEvent(ctx, e.ID)
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	b := repo.filter(repo.db.Builder.Select("*").From(eventTable), filter)
	b = orderBy(b, ordering, eventOrderings, "starts_at DESC")

	list := make([]event.Event, 0)
	if err := repo.all(ctx, &list, b, "querying events"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}
	var e event.Event
	b := repo.db.Builder.Select("*").From(eventTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &e, b, event.ErrNotFound, "finding event"); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	b := repo.db.Builder.Update(eventTable).SetMap(repo.values(e)).Where(sq.Eq{"id": e.ID})
	if err := repo.update(ctx, b, event.ErrNotFound, "updating event"); err != nil {
		return event.Event{}, err
	}
	return repo.GetEvent(ctx, e.ID)
}

func (repo eventRepository) DeleteEventsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, eventTable, ids, "deleting events")
}

func (repo eventRepository) CountEvents(ctx context.Context, filter *event.QueryFilter) (int, error) {
	b := repo.filter(repo.db.Builder.Select("COUNT(*)").From(eventTable), filter)
	return repo.count(ctx, b, "counting events")
}

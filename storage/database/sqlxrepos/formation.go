package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/storage/database"
)

const formationTable = "formation"

var formationOrderings = map[string]string{
	"title":          "title",
	"category":       "category",
	"level":          "level",
	"status":         "status",
	"price":          "price",
	"duration_hours": "duration_hours",
	"start_date":     "start_date",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}

type formationRepository struct {
	repo
}

var _ formation.Repository = (*formationRepository)(nil) // interface compliance check

func NewFormationRepository(db *database.DB) *formationRepository {
	return &formationRepository{repo{db: db}}
}

func (repo formationRepository) values(f formation.Formation) map[string]interface{} {
	return map[string]interface{}{
		"title":            f.Title,
		"slug":             f.Slug,
		"summary":          f.Summary,
		"description":      f.Description,
		"category":         f.Category,
		"level":            f.Level,
		"duration_hours":   f.DurationHours,
		"price":            f.Price,
		"max_participants": f.MaxParticipants,
		"instructor":       f.Instructor,
		"location":         f.Location,
		"start_date":       utcPtr(f.StartDate),
		"end_date":         utcPtr(f.EndDate),
		"objectives":       f.Objectives,
		"modules":          f.Modules,
		"prerequisites":    f.Prerequisites,
		"status":           f.Status,
		"created_at":       f.CreatedAt.UTC(),
		"updated_at":       f.UpdatedAt.UTC(),
	}
}

func (repo formationRepository) SlugExists(ctx context.Context, slug string, excludedIDs ...string) (bool, error) {
	b := repo.db.Builder.Select("COUNT(*)").From(formationTable).Where(sq.Eq{"slug": slug})
	if len(excludedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": excludedIDs})
	}
	n, err := repo.count(ctx, b, "checking formation slug")
	return n > 0, err
}

func (repo formationRepository) CreateFormation(ctx context.Context, f formation.Formation) (formation.Formation, error) {
	f.ID = newID()
	values := repo.values(f)
	values["id"] = f.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(formationTable).SetMap(values), "inserting formation"); err != nil {
		return formation.Formation{}, err
	}
	return repo.GetFormation(ctx, f.ID)
}

func (repo formationRepository) QueryFormations(ctx context.Context, filter *formation.QueryFilter, ordering []core.DBOrdering) ([]formation.Formation, error) {
	b := repo.db.Builder.Select("*").From(formationTable)
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(search(filter.Search, "title", "summary", "category"))
		}
		if filter.Category != "" {
			b = b.Where(sq.Eq{"category": filter.Category})
		}
		if filter.Level != "" {
			b = b.Where(sq.Eq{"level": filter.Level})
		}
		if filter.Status != "" {
			b = b.Where(sq.Eq{"status": filter.Status})
		}
	}
	b = orderBy(b, ordering, formationOrderings, "created_at DESC")

	list := make([]formation.Formation, 0)
	if err := repo.all(ctx, &list, b, "querying formations"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo formationRepository) GetFormation(ctx context.Context, id string) (formation.Formation, error) {
	if !validID(id) {
		return formation.Formation{}, formation.ErrNotFound
	}
	var f formation.Formation
	b := repo.db.Builder.Select("*").From(formationTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &f, b, formation.ErrNotFound, "finding formation"); err != nil {
		return formation.Formation{}, err
	}
	return f, nil
}

func (repo formationRepository) GetFormationBySlug(ctx context.Context, slug string) (formation.Formation, error) {
	var f formation.Formation
	b := repo.db.Builder.Select("*").From(formationTable).Where(sq.Eq{"slug": slug})
	if err := repo.get(ctx, &f, b, formation.ErrNotFound, "finding formation by slug"); err != nil {
		return formation.Formation{}, err
	}
	return f, nil
}

func (repo formationRepository) UpdateFormation(ctx context.Context, f formation.Formation) (formation.Formation, error) {
	b := repo.db.Builder.Update(formationTable).SetMap(repo.values(f)).Where(sq.Eq{"id": f.ID})
	if err := repo.update(ctx, b, formation.ErrNotFound, "updating formation"); err != nil {
		return formation.Formation{}, err
	}
	return repo.GetFormation(ctx, f.ID)
}

func (repo formationRepository) DeleteFormationsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, formationTable, ids, "deleting formations")
}

func (repo formationRepository) CountFormations(ctx context.Context, status string) (int, error) {
	b := repo.db.Builder.Select("COUNT(*)").From(formationTable)
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	return repo.count(ctx, b, "counting formations")
}

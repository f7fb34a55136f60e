package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/storage/database"
)

const inscriptionTable = "inscription"

var inscriptionOrderings = map[string]string{
	"kind":        "kind",
	"first_name":  "first_name",
	"last_name":   "last_name",
	"email":       "email",
	"status":      "status",
	"reviewed_at": "reviewed_at",
	"created_at":  "created_at",
}

type inscriptionRepository struct {
	repo
}

var _ inscription.Repository = (*inscriptionRepository)(nil) // interface compliance check

func NewInscriptionRepository(db *database.DB) *inscriptionRepository {
	return &inscriptionRepository{repo{db: db}}
}

func (repo inscriptionRepository) values(i inscription.Inscription) map[string]interface{} {
	return map[string]interface{}{
		"kind":         i.Kind,
		"target_id":    i.TargetID,
		"first_name":   i.FirstName,
		"last_name":    i.LastName,
		"email":        i.Email,
		"phone":        i.Phone,
		"organization": i.Organization,
		"motivation":   i.Motivation,
		"status":       i.Status,
		"review_note":  i.ReviewNote,
		"reviewed_by":  i.ReviewedBy,
		"reviewed_at":  utcPtr(i.ReviewedAt),
		"created_at":   i.CreatedAt.UTC(),
		"updated_at":   i.UpdatedAt.UTC(),
	}
}

func (repo inscriptionRepository) filter(b sq.SelectBuilder, filter *inscription.QueryFilter) sq.SelectBuilder {
	if filter == nil {
		return b
	}
	if filter.Kind != "" {
		b = b.Where(sq.Eq{"kind": filter.Kind})
	}
	if filter.TargetID != "" {
		b = b.Where(sq.Eq{"target_id": filter.TargetID})
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Email != "" {
		b = b.Where(sq.Eq{"email": filter.Email})
	}
	if filter.Search != "" {
		b = b.Where(search(filter.Search, "first_name", "last_name", "email", "organization"))
	}
	return b
}

func (repo inscriptionRepository) CreateInscription(ctx context.Context, i inscription.Inscription) (inscription.Inscription, error) {
	i.ID = newID()
	values := repo.values(i)
	values["id"] = i.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(inscriptionTable).SetMap(values), "inserting inscription"); err != nil {
		return inscription.Inscription{}, err
	}
	return repo.GetInscription(ctx, i.ID)
}

func (repo inscriptionRepository) QueryInscriptions(ctx context.Context, filter *inscription.QueryFilter, ordering []core.DBOrdering) ([]inscription.Inscription, error) {
	b := repo.filter(repo.db.Builder.Select("*").From(inscriptionTable), filter)
	b = orderBy(b, ordering, inscriptionOrderings, "created_at DESC")

	list := make([]inscription.Inscription, 0)
	if err := repo.all(ctx, &list, b, "querying inscriptions"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo inscriptionRepository) GetInscription(ctx context.Context, id string) (inscription.Inscription, error) {
	if !validID(id) {
		return inscription.Inscription{}, inscription.ErrNotFound
	}
	var i inscription.Inscription
	b := repo.db.Builder.Select("*").From(inscriptionTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &i, b, inscription.ErrNotFound, "finding inscription"); err != nil {
		return inscription.Inscription{}, err
	}
	return i, nil
}

var inscriptionTargetTables = map[string]string{
	inscription.KindFormation: formationTable,
	inscription.KindEvent:     eventTable,
	inscription.KindFabLab:    planTable,
}

// LockTarget locks the formation, event or plan row; a deleted target is not an error.
func (repo inscriptionRepository) LockTarget(ctx context.Context, kind, targetID string) error {
	table, ok := inscriptionTargetTables[kind]
	if !ok {
		return errors.Errorf("unknown inscription kind %q", kind)
	}
	return repo.lockRow(ctx, table, targetID, nil, "locking the inscription target")
}

func (repo inscriptionRepository) UpdateInscription(ctx context.Context, i inscription.Inscription) (inscription.Inscription, error) {
	b := repo.db.Builder.Update(inscriptionTable).SetMap(repo.values(i)).Where(sq.Eq{"id": i.ID})
	if err := repo.update(ctx, b, inscription.ErrNotFound, "updating inscription"); err != nil {
		return inscription.Inscription{}, err
	}
	return repo.GetInscription(ctx, i.ID)
}

func (repo inscriptionRepository) DeleteInscriptionsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, inscriptionTable, ids, "deleting inscriptions")
}

func (repo inscriptionRepository) CountInscriptions(ctx context.Context, filter *inscription.QueryFilter) (int, error) {
	b := repo.filter(repo.db.Builder.Select("COUNT(*)").From(inscriptionTable), filter)
	return repo.count(ctx, b, "counting inscriptions")
}

func (repo inscriptionRepository) CountByStatus(ctx context.Context, kind string) (map[string]int, error) {
	b := repo.db.Builder.Select("status", "COUNT(*) AS total").From(inscriptionTable).GroupBy("status")
	if kind != "" {
		b = b.Where(sq.Eq{"kind": kind})
	}
	rows := make([]struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}, 0)
	if err := repo.all(ctx, &rows, b, "counting inscriptions by status"); err != nil {
		return nil, errors.WithStack(err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

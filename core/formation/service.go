package formation

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crec/backoffice/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("formation")
	ErrSlugExists = errors.New("a formation with this slug already exists")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		SlugExists(ctx context.Context, slug string, excludedIDs ...string) (bool, error)
		CreateFormation(ctx context.Context, f Formation) (Formation, error)
		// QueryFormations applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Title, Summary or Category.
		QueryFormations(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Formation, error)
		GetFormation(ctx context.Context, id string) (Formation, error)
		GetFormationBySlug(ctx context.Context, slug string) (Formation, error)
		UpdateFormation(ctx context.Context, f Formation) (Formation, error)
		DeleteFormationsByID(ctx context.Context, ids ...string) (int, error)
		CountFormations(ctx context.Context, status string) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) check(ctx context.Context, f *Formation, excludedIDs ...string) error {
	f.clean()
	if err := svc.validate.Struct(f); err != nil {
		return err
	}
	if f.Price.IsNegative() {
		return core.NewFieldError("price", "must be 0 or greater")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return core.NewFieldError("end_date", "must not be before start_date")
	}

	exists, err := svc.repo.SlugExists(ctx, f.Slug, excludedIDs...)
	if err != nil {
		return err
	}
	if exists {
		return core.NewValidationError(ErrSlugExists, core.FieldError{Field: "slug", Error: ErrSlugExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nf NewFormation) (Formation, error) {
	f := nf.formation()
	if err := svc.check(ctx, &f); err != nil {
		return Formation{}, err
	}
	now := nowFunc().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	return svc.repo.CreateFormation(ctx, f)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Formation, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryFormations(ctx, filter, ordering)
}

// Published lists up to `limit` published formations, soonest first (0: no limit).
func (svc *Service) Published(ctx context.Context, limit int) ([]Formation, error) {
	list, err := svc.repo.QueryFormations(ctx, &QueryFilter{Status: StatusPublished}, []core.DBOrdering{
		{Field: "start_date", Ascending: true},
		{Field: "title", Ascending: true},
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Formation, error) {
	return svc.repo.GetFormation(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Formation, error) {
	return svc.repo.GetFormationBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uf UpdateFormation) (Formation, error) {
	f, err := svc.repo.GetFormation(ctx, id)
	if err != nil {
		return Formation{}, err
	}
	uf.apply(&f)
	if err = svc.check(ctx, &f, f.ID); err != nil {
		return Formation{}, err
	}
	f.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateFormation(ctx, f)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteFormationsByID(ctx, ids...)
	return err
}

func (svc *Service) CountPublished(ctx context.Context) (int, error) {
	return svc.repo.CountFormations(ctx, StatusPublished)
}

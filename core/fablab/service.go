package fablab

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crec/backoffice/core"
)

var (
	// errors
	ErrProjectNotFound     = core.NewNotFoundError("project")
	ErrOfferingNotFound    = core.NewNotFoundError("service")
	ErrPlanNotFound        = core.NewNotFoundError("pricing plan")
	ErrReservationNotFound = core.NewNotFoundError("reservation")

	errNegativeAmount = errors.New("must be 0 or greater")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateProject(ctx context.Context, p Project) (Project, error)
		// QueryProjects: ProjectFilter.Search does a case-insensitive match on one of Title, Summary or Author.
		QueryProjects(ctx context.Context, filter *ProjectFilter, ordering []core.DBOrdering) ([]Project, error)
		GetProject(ctx context.Context, id string) (Project, error)
		UpdateProject(ctx context.Context, p Project) (Project, error)
		DeleteProjectsByID(ctx context.Context, ids ...string) (int, error)

		CreateOffering(ctx context.Context, o Offering) (Offering, error)
		QueryOfferings(ctx context.Context, filter *OfferingFilter, ordering []core.DBOrdering) ([]Offering, error)
		GetOffering(ctx context.Context, id string) (Offering, error)
		// LockOffering serialises the bookings of an offering until the end of the transaction carried by ctx.
		LockOffering(ctx context.Context, id string) error
		UpdateOffering(ctx context.Context, o Offering) (Offering, error)
		DeleteOfferingsByID(ctx context.Context, ids ...string) (int, error)

		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		QueryPlans(ctx context.Context, filter *PlanFilter, ordering []core.DBOrdering) ([]Plan, error)
		GetPlan(ctx context.Context, id string) (Plan, error)
		UpdatePlan(ctx context.Context, p Plan) (Plan, error)
		DeletePlansByID(ctx context.Context, ids ...string) (int, error)

		CreateReservation(ctx context.Context, r Reservation) (Reservation, error)
		QueryReservations(ctx context.Context, filter *ReservationFilter, ordering []core.DBOrdering) ([]Reservation, error)
		GetReservation(ctx context.Context, id string) (Reservation, error)
		UpdateReservation(ctx context.Context, r Reservation) (Reservation, error)
		CountReservations(ctx context.Context, filter *ReservationFilter) (int, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		mailSvc  core.EmailService
		conf     core.FabLabConfig
		validate *validator.Validate
	}
)

func NewService(repo Repository, tx core.Transactor, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *Service {
	return &Service{repo: repo, tx: tx, mailSvc: mailSvc, conf: conf.FabLab, validate: validate}
}

// Projects

func (svc *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	p.clean()
	if err := svc.validate.Struct(p); err != nil {
		return Project{}, err
	}
	now := nowFunc().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return svc.repo.CreateProject(ctx, p)
}

func (svc *Service) QueryProjects(ctx context.Context, filter *ProjectFilter, ordering []core.DBOrdering) ([]Project, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryProjects(ctx, filter, ordering)
}

// FeaturedProjects lists up to `limit` featured projects, latest first (0: no limit).
func (svc *Service) FeaturedProjects(ctx context.Context, limit int) ([]Project, error) {
	list, err := svc.repo.QueryProjects(ctx, &ProjectFilter{Featured: core.BoolPtr(true)}, nil)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (svc *Service) GetProject(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) UpdateProject(ctx context.Context, id string, up UpdateProject) (Project, error) {
	p, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	up.apply(&p)
	p.clean()
	if err = svc.validate.Struct(p); err != nil {
		return Project{}, err
	}
	p.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateProject(ctx, p)
}

func (svc *Service) DeleteProjects(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteProjectsByID(ctx, ids...)
	return err
}

// Offerings

func (svc *Service) checkOffering(o *Offering) error {
	o.clean()
	if err := svc.validate.Struct(o); err != nil {
		return err
	}
	if o.HourlyRate.IsNegative() {
		return core.NewFieldError("hourly_rate", errNegativeAmount.Error())
	}
	return nil
}

func (svc *Service) CreateOffering(ctx context.Context, o Offering) (Offering, error) {
	if err := svc.checkOffering(&o); err != nil {
		return Offering{}, err
	}
	now := nowFunc().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	return svc.repo.CreateOffering(ctx, o)
}

func (svc *Service) QueryOfferings(ctx context.Context, filter *OfferingFilter, ordering []core.DBOrdering) ([]Offering, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryOfferings(ctx, filter, ordering)
}

func (svc *Service) GetOffering(ctx context.Context, id string) (Offering, error) {
	return svc.repo.GetOffering(ctx, id)
}

func (svc *Service) UpdateOffering(ctx context.Context, id string, uo UpdateOffering) (Offering, error) {
	o, err := svc.repo.GetOffering(ctx, id)
	if err != nil {
		return Offering{}, err
	}
	uo.apply(&o)
	if err = svc.checkOffering(&o); err != nil {
		return Offering{}, err
	}
	o.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateOffering(ctx, o)
}

func (svc *Service) DeleteOfferings(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteOfferingsByID(ctx, ids...)
	return err
}

// Pricing plans

func (svc *Service) checkPlan(p *Plan) error {
	p.clean()
	if err := svc.validate.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return core.NewFieldError("price", errNegativeAmount.Error())
	}
	return nil
}

func (svc *Service) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	if err := svc.checkPlan(&p); err != nil {
		return Plan{}, err
	}
	now := nowFunc().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return svc.repo.CreatePlan(ctx, p)
}

func (svc *Service) QueryPlans(ctx context.Context, filter *PlanFilter, ordering []core.DBOrdering) ([]Plan, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryPlans(ctx, filter, ordering)
}

func (svc *Service) GetPlan(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, id)
}

func (svc *Service) UpdatePlan(ctx context.Context, id string, up UpdatePlan) (Plan, error) {
	p, err := svc.repo.GetPlan(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	up.apply(&p)
	if err = svc.checkPlan(&p); err != nil {
		return Plan{}, err
	}
	p.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdatePlan(ctx, p)
}

func (svc *Service) DeletePlans(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeletePlansByID(ctx, ids...)
	return err
}

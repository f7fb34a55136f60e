package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/storage/database"
)

const (
	projectTable     = "fablab_project"
	offeringTable    = "fablab_offering"
	planTable        = "fablab_pricing"
	reservationTable = "fablab_reservation"
)

var (
	projectOrderings = map[string]string{
		"title":      "title",
		"author":     "author",
		"category":   "category",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	offeringOrderings = map[string]string{
		"name":        "name",
		"category":    "category",
		"hourly_rate": "hourly_rate",
		"created_at":  "created_at",
	}
	planOrderings = map[string]string{
		"name":          "name",
		"audience":      "audience",
		"price":         "price",
		"monthly_hours": "monthly_hours",
		"sort_order":    "sort_order",
	}
	reservationOrderings = map[string]string{
		"member_name":  "member_name",
		"member_email": "member_email",
		"starts_at":    "starts_at",
		"status":       "status",
		"created_at":   "created_at",
	}
)

type fablabRepository struct {
	repo
}

var _ fablab.Repository = (*fablabRepository)(nil) // interface compliance check

func NewFabLabRepository(db *database.DB) *fablabRepository {
	return &fablabRepository{repo{db: db}}
}

// Projects

func (repo fablabRepository) projectValues(p fablab.Project) map[string]interface{} {
	return map[string]interface{}{
		"title":       p.Title,
		"summary":     p.Summary,
		"description": p.Description,
		"author":      p.Author,
		"category":    p.Category,
		"image_url":   p.ImageURL,
		"tags":        p.Tags,
		"machines":    p.Machines,
		"is_featured": p.IsFeatured,
		"created_at":  p.CreatedAt.UTC(),
		"updated_at":  p.UpdatedAt.UTC(),
	}
}

func (repo fablabRepository) CreateProject(ctx context.Context, p fablab.Project) (fablab.Project, error) {
	p.ID = newID()
	values := repo.projectValues(p)
	values["id"] = p.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(projectTable).SetMap(values), "inserting project"); err != nil {
		return fablab.Project{}, err
	}
	return repo.GetProject(ctx, p.ID)
}

func (repo fablabRepository) QueryProjects(ctx context.Context, filter *fablab.ProjectFilter, ordering []core.DBOrdering) ([]fablab.Project, error) {
	b := repo.db.Builder.Select("*").From(projectTable)
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(search(filter.Search, "title", "summary", "author"))
		}
		if filter.Category != "" {
			b = b.Where(sq.Eq{"category": filter.Category})
		}
		if filter.Tag != "" {
			b = b.Where(hasItem("tags", filter.Tag))
		}
		if filter.Featured != nil {
			b = b.Where(sq.Eq{"is_featured": *filter.Featured})
		}
	}
	b = orderBy(b, ordering, projectOrderings, "created_at DESC")

	list := make([]fablab.Project, 0)
	if err := repo.all(ctx, &list, b, "querying projects"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo fablabRepository) GetProject(ctx context.Context, id string) (fablab.Project, error) {
	if !validID(id) {
		return fablab.Project{}, fablab.ErrProjectNotFound
	}
	var p fablab.Project
	b := repo.db.Builder.Select("*").From(projectTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &p, b, fablab.ErrProjectNotFound, "finding project"); err != nil {
		return fablab.Project{}, err
	}
	return p, nil
}

func (repo fablabRepository) UpdateProject(ctx context.Context, p fablab.Project) (fablab.Project, error) {
	b := repo.db.Builder.Update(projectTable).SetMap(repo.projectValues(p)).Where(sq.Eq{"id": p.ID})
	if err := repo.update(ctx, b, fablab.ErrProjectNotFound, "updating project"); err != nil {
		return fablab.Project{}, err
	}
	return repo.GetProject(ctx, p.ID)
}

func (repo fablabRepository) DeleteProjectsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, projectTable, ids, "deleting projects")
}

// Offerings

func (repo fablabRepository) offeringValues(o fablab.Offering) map[string]interface{} {
	return map[string]interface{}{
		"name":          o.Name,
		"description":   o.Description,
		"category":      o.Category,
		"hourly_rate":   o.HourlyRate,
		"is_reservable": o.IsReservable,
		"is_active":     o.IsActive,
		"created_at":    o.CreatedAt.UTC(),
		"updated_at":    o.UpdatedAt.UTC(),
	}
}

func (repo fablabRepository) CreateOffering(ctx context.Context, o fablab.Offering) (fablab.Offering, error) {
	o.ID = newID()
	values := repo.offeringValues(o)
	values["id"] = o.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(offeringTable).SetMap(values), "inserting service"); err != nil {
		return fablab.Offering{}, err
	}
	return repo.GetOffering(ctx, o.ID)
}

func (repo fablabRepository) QueryOfferings(ctx context.Context, filter *fablab.OfferingFilter, ordering []core.DBOrdering) ([]fablab.Offering, error) {
	b := repo.db.Builder.Select("*").From(offeringTable)
	if filter != nil {
		if filter.Search != "" {
			b = b.Where(search(filter.Search, "name", "description"))
		}
		if filter.Category != "" {
			b = b.Where(sq.Eq{"category": filter.Category})
		}
		if filter.Active != nil {
			b = b.Where(sq.Eq{"is_active": *filter.Active})
		}
		if filter.Reservable != nil {
			b = b.Where(sq.Eq{"is_reservable": *filter.Reservable})
		}
	}
	b = orderBy(b, ordering, offeringOrderings, "category ASC", "name ASC")

	list := make([]fablab.Offering, 0)
	if err := repo.all(ctx, &list, b, "querying services"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo fablabRepository) GetOffering(ctx context.Context, id string) (fablab.Offering, error) {
	if !validID(id) {
		return fablab.Offering{}, fablab.ErrOfferingNotFound
	}
	var o fablab.Offering
	b := repo.db.Builder.Select("*").From(offeringTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &o, b, fablab.ErrOfferingNotFound, "finding service"); err != nil {
		return fablab.Offering{}, err
	}
	return o, nil
}

func (repo fablabRepository) LockOffering(ctx context.Context, id string) error {
	return repo.lockRow(ctx, offeringTable, id, fablab.ErrOfferingNotFound, "locking a service")
}

func (repo fablabRepository) UpdateOffering(ctx context.Context, o fablab.Offering) (fablab.Offering, error) {
	b := repo.db.Builder.Update(offeringTable).SetMap(repo.offeringValues(o)).Where(sq.Eq{"id": o.ID})
	if err := repo.update(ctx, b, fablab.ErrOfferingNotFound, "updating service"); err != nil {
		return fablab.Offering{}, err
	}
	return repo.GetOffering(ctx, o.ID)
}

func (repo fablabRepository) DeleteOfferingsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, offeringTable, ids, "deleting services")
}

// Pricing plans

func (repo fablabRepository) planValues(p fablab.Plan) map[string]interface{} {
	return map[string]interface{}{
		"name":           p.Name,
		"audience":       p.Audience,
		"price":          p.Price,
		"period":         p.Period,
		"monthly_hours":  p.MonthlyHours,
		"features":       p.Features,
		"is_highlighted": p.IsHighlighted,
		"is_active":      p.IsActive,
		"sort_order":     p.SortOrder,
		"created_at":     p.CreatedAt.UTC(),
		"updated_at":     p.UpdatedAt.UTC(),
	}
}

func (repo fablabRepository) CreatePlan(ctx context.Context, p fablab.Plan) (fablab.Plan, error) {
	p.ID = newID()
	values := repo.planValues(p)
	values["id"] = p.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(planTable).SetMap(values), "inserting pricing plan"); err != nil {
		return fablab.Plan{}, err
	}
	return repo.GetPlan(ctx, p.ID)
}

func (repo fablabRepository) QueryPlans(ctx context.Context, filter *fablab.PlanFilter, ordering []core.DBOrdering) ([]fablab.Plan, error) {
	b := repo.db.Builder.Select("*").From(planTable)
	if filter != nil {
		if filter.Audience != "" {
			b = b.Where(sq.Eq{"audience": filter.Audience})
		}
		if filter.Active != nil {
			b = b.Where(sq.Eq{"is_active": *filter.Active})
		}
	}
	b = orderBy(b, ordering, planOrderings, "sort_order ASC", "name ASC")

	list := make([]fablab.Plan, 0)
	if err := repo.all(ctx, &list, b, "querying pricing plans"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo fablabRepository) GetPlan(ctx context.Context, id string) (fablab.Plan, error) {
	if !validID(id) {
		return fablab.Plan{}, fablab.ErrPlanNotFound
	}
	var p fablab.Plan
	b := repo.db.Builder.Select("*").From(planTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &p, b, fablab.ErrPlanNotFound, "finding pricing plan"); err != nil {
		return fablab.Plan{}, err
	}
	return p, nil
}

func (repo fablabRepository) UpdatePlan(ctx context.Context, p fablab.Plan) (fablab.Plan, error) {
	b := repo.db.Builder.Update(planTable).SetMap(repo.planValues(p)).Where(sq.Eq{"id": p.ID})
	if err := repo.update(ctx, b, fablab.ErrPlanNotFound, "updating pricing plan"); err != nil {
		return fablab.Plan{}, err
	}
	return repo.GetPlan(ctx, p.ID)
}

func (repo fablabRepository) DeletePlansByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, planTable, ids, "deleting pricing plans")
}

// Reservations

func (repo fablabRepository) reservationValues(r fablab.Reservation) map[string]interface{} {
	return map[string]interface{}{
		"offering_id":  r.OfferingID,
		"plan_id":      r.PlanID,
		"member_name":  r.MemberName,
		"member_email": r.MemberEmail,
		"starts_at":    r.StartsAt.UTC(),
		"ends_at":      r.EndsAt.UTC(),
		"purpose":      r.Purpose,
		"status":       r.Status,
		"admin_note":   r.AdminNote,
		"created_at":   r.CreatedAt.UTC(),
		"updated_at":   r.UpdatedAt.UTC(),
	}
}

func (repo fablabRepository) filterReservations(b sq.SelectBuilder, filter *fablab.ReservationFilter) sq.SelectBuilder {
	if filter == nil {
		return b
	}
	if filter.OfferingID != "" {
		b = b.Where(sq.Eq{"offering_id": filter.OfferingID})
	}
	if filter.PlanID != "" {
		b = b.Where(sq.Eq{"plan_id": filter.PlanID})
	}
	if filter.MemberEmail != "" {
		b = b.Where(sq.Eq{"member_email": filter.MemberEmail})
	}
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": filter.Statuses})
	}
	if !filter.StartsFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"starts_at": filter.StartsFrom.UTC()})
	}
	if !filter.StartsBefore.IsZero() {
		b = b.Where(sq.Lt{"starts_at": filter.StartsBefore.UTC()})
	}
	if !filter.EndsAfter.IsZero() {
		b = b.Where(sq.Gt{"ends_at": filter.EndsAfter.UTC()})
	}
	return b
}

func (repo fablabRepository) CreateReservation(ctx context.Context, r fablab.Reservation) (fablab.Reservation, error) {
	r.ID = newID()
	values := repo.reservationValues(r)
	values["id"] = r.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(reservationTable).SetMap(values), "inserting reservation"); err != nil {
		return fablab.Reservation{}, err
	}
	return repo.GetReservation(ctx, r.ID)
}

func (repo fablabRepository) QueryReservations(ctx context.Context, filter *fablab.ReservationFilter, ordering []core.DBOrdering) ([]fablab.Reservation, error) {
	b := repo.filterReservations(repo.db.Builder.Select("*").From(reservationTable), filter)
	b = orderBy(b, ordering, reservationOrderings, "starts_at DESC")

	list := make([]fablab.Reservation, 0)
	if err := repo.all(ctx, &list, b, "querying reservations"); err != nil {
		return nil, err
	}
	return list, nil
}

func (repo fablabRepository) GetReservation(ctx context.Context, id string) (fablab.Reservation, error) {
	if !validID(id) {
		return fablab.Reservation{}, fablab.ErrReservationNotFound
	}
	var r fablab.Reservation
	b := repo.db.Builder.Select("*").From(reservationTable).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, &r, b, fablab.ErrReservationNotFound, "finding reservation"); err != nil {
		return fablab.Reservation{}, err
	}
	return r, nil
}

func (repo fablabRepository) UpdateReservation(ctx context.Context, r fablab.Reservation) (fablab.Reservation, error) {
	b := repo.db.Builder.Update(reservationTable).SetMap(repo.reservationValues(r)).Where(sq.Eq{"id": r.ID})
	if err := repo.update(ctx, b, fablab.ErrReservationNotFound, "updating reservation"); err != nil {
		return fablab.Reservation{}, err
	}
	return repo.GetReservation(ctx, r.ID)
}

func (repo fablabRepository) CountReservations(ctx context.Context, filter *fablab.ReservationFilter) (int, error) {
	b := repo.filterReservations(repo.db.Builder.Select("COUNT(*)").From(reservationTable), filter)
	return repo.count(ctx, b, "counting reservations")
}

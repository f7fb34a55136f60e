package fablab

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crec/backoffice/core"
)

// Offering categories
const (
	CategoryMachine  = "machine"
	CategoryTraining = "training"
	CategorySupport  = "support"
)

// Plan audiences & billing periods
const (
	AudienceStudent     = "student"
	AudienceIndividual  = "individual"
	AudienceBusiness    = "business"
	AudienceAssociation = "association"

	PeriodMonth   = "month"
	PeriodYear    = "year"
	PeriodSession = "session"
)

// Reservation statuses
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// LiveStatuses are the statuses of the reservations holding a slot & counting toward the quota.
var LiveStatuses = []string{StatusPending, StatusConfirmed}

// Project is a realisation showcased on the FabLab page.
type Project struct {
	ID          string          `json:"id" db:"id"`
	Title       string          `json:"title" db:"title" validate:"required,max=255"`
	Summary     string          `json:"summary" db:"summary"`
	Description string          `json:"description" db:"description"`
	Author      string          `json:"author" db:"author" validate:"max=255"`
	Category    string          `json:"category" db:"category" validate:"max=100"`
	ImageURL    string          `json:"image_url" db:"image_url" validate:"omitempty,url,max=500"`
	Tags        core.StringList `json:"tags" db:"tags"`
	Machines    core.StringList `json:"machines" db:"machines"`
	IsFeatured  bool            `json:"is_featured" db:"is_featured"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

func (p *Project) clean() {
	p.Title = core.CleanString(p.Title)
	p.Summary = core.CleanString(p.Summary)
	p.Description = core.CleanString(p.Description)
	p.Author = core.CleanString(p.Author)
	p.Category = core.CleanString(p.Category)
	p.ImageURL = core.CleanString(p.ImageURL)
	p.Tags = core.CleanStrings(p.Tags)
	p.Machines = core.CleanStrings(p.Machines)
}

// Offering is a FabLab service: a machine, a training or support, possibly reservable by the hour.
type Offering struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name" validate:"required,max=255"`
	Description  string          `json:"description" db:"description"`
	Category     string          `json:"category" db:"category" validate:"required,oneof=machine training support"`
	HourlyRate   decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	IsReservable bool            `json:"is_reservable" db:"is_reservable"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

func (o *Offering) clean() {
	o.Name = core.CleanString(o.Name)
	o.Description = core.CleanString(o.Description)
	o.Category = core.CleanString(o.Category, true /* lower */)
}

// Plan is a membership pricing plan; MonthlyHours is the machine time allowance (0: unlimited).
type Plan struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name" validate:"required,max=255"`
	Audience      string          `json:"audience" db:"audience" validate:"required,oneof=student individual business association"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Period        string          `json:"period" db:"period" validate:"required,oneof=month year session"`
	MonthlyHours  int             `json:"monthly_hours" db:"monthly_hours" validate:"min=0"`
	Features      core.StringList `json:"features" db:"features"`
	IsHighlighted bool            `json:"is_highlighted" db:"is_highlighted"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	SortOrder     int             `json:"sort_order" db:"sort_order"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

func (p *Plan) clean() {
	p.Name = core.CleanString(p.Name)
	p.Audience = core.CleanString(p.Audience, true /* lower */)
	p.Period = core.CleanString(p.Period, true)
	p.Features = core.CleanStrings(p.Features)
}

type Reservation struct {
	ID          string    `json:"id" db:"id"`
	OfferingID  string    `json:"offering_id" db:"offering_id"`
	PlanID      string    `json:"plan_id" db:"plan_id"`
	MemberName  string    `json:"member_name" db:"member_name"`
	MemberEmail string    `json:"member_email" db:"member_email"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"` // UTC
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`     // UTC
	Purpose     string    `json:"purpose" db:"purpose"`
	Status      string    `json:"status" db:"status"`
	AdminNote   string    `json:"admin_note" db:"admin_note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (r Reservation) Hours() float64 {
	return r.EndsAt.Sub(r.StartsAt).Hours()
}

// NewReservation is a member's booking request.
type NewReservation struct {
	OfferingID  string    `json:"offering_id" validate:"required"`
	PlanID      string    `json:"plan_id" validate:"required"`
	MemberName  string    `json:"member_name" validate:"required,max=255"`
	MemberEmail string    `json:"member_email" validate:"required,email,max=255"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	Purpose     string    `json:"purpose" validate:"max=2000"`
}

func (nr *NewReservation) clean() {
	nr.OfferingID = core.CleanString(nr.OfferingID)
	nr.PlanID = core.CleanString(nr.PlanID)
	nr.MemberName = core.CleanString(nr.MemberName)
	nr.MemberEmail = core.CleanString(nr.MemberEmail, true /* lower */)
	nr.StartsAt = nr.StartsAt.UTC()
	nr.EndsAt = nr.EndsAt.UTC()
	nr.Purpose = core.CleanString(nr.Purpose)
}

// ReviewReservation is the staff decision on a reservation.
type ReviewReservation struct {
	Status    string `json:"status" validate:"required,oneof=confirmed cancelled"`
	AdminNote string `json:"admin_note" validate:"max=2000"`
}

// UpdateProject, UpdateOffering & UpdatePlan define what may be provided to modify existing records.
// Nil fields are left untouched; list fields are replaced when provided.
type (
	UpdateProject struct {
		Title       *string  `json:"title"`
		Summary     *string  `json:"summary"`
		Description *string  `json:"description"`
		Author      *string  `json:"author"`
		Category    *string  `json:"category"`
		ImageURL    *string  `json:"image_url"`
		Tags        []string `json:"tags"`
		Machines    []string `json:"machines"`
		IsFeatured  *bool    `json:"is_featured"`
	}

	UpdateOffering struct {
		Name         *string          `json:"name"`
		Description  *string          `json:"description"`
		Category     *string          `json:"category"`
		HourlyRate   *decimal.Decimal `json:"hourly_rate"`
		IsReservable *bool            `json:"is_reservable"`
		IsActive     *bool            `json:"is_active"`
	}

	UpdatePlan struct {
		Name          *string          `json:"name"`
		Audience      *string          `json:"audience"`
		Price         *decimal.Decimal `json:"price"`
		Period        *string          `json:"period"`
		MonthlyHours  *int             `json:"monthly_hours"`
		Features      []string         `json:"features"`
		IsHighlighted *bool            `json:"is_highlighted"`
		IsActive      *bool            `json:"is_active"`
		SortOrder     *int             `json:"sort_order"`
	}
)

func (up UpdateProject) apply(p *Project) {
	setString(&p.Title, up.Title)
	setString(&p.Summary, up.Summary)
	setString(&p.Description, up.Description)
	setString(&p.Author, up.Author)
	setString(&p.Category, up.Category)
	setString(&p.ImageURL, up.ImageURL)
	if up.Tags != nil {
		p.Tags = up.Tags
	}
	if up.Machines != nil {
		p.Machines = up.Machines
	}
	setBool(&p.IsFeatured, up.IsFeatured)
}

func (uo UpdateOffering) apply(o *Offering) {
	setString(&o.Name, uo.Name)
	setString(&o.Description, uo.Description)
	setString(&o.Category, uo.Category)
	if uo.HourlyRate != nil {
		o.HourlyRate = *uo.HourlyRate
	}
	setBool(&o.IsReservable, uo.IsReservable)
	setBool(&o.IsActive, uo.IsActive)
}

func (up UpdatePlan) apply(p *Plan) {
	setString(&p.Name, up.Name)
	setString(&p.Audience, up.Audience)
	if up.Price != nil {
		p.Price = *up.Price
	}
	setString(&p.Period, up.Period)
	if up.MonthlyHours != nil {
		p.MonthlyHours = *up.MonthlyHours
	}
	if up.Features != nil {
		p.Features = up.Features
	}
	setBool(&p.IsHighlighted, up.IsHighlighted)
	setBool(&p.IsActive, up.IsActive)
	if up.SortOrder != nil {
		p.SortOrder = *up.SortOrder
	}
}

func setString(dst *string, val *string) {
	if val != nil {
		*dst = *val
	}
}

func setBool(dst *bool, val *bool) {
	if val != nil {
		*dst = *val
	}
}

type (
	ProjectFilter struct {
		Search   string
		Category string
		Tag      string
		Featured *bool
	}

	OfferingFilter struct {
		Search     string
		Category   string
		Active     *bool
		Reservable *bool
	}

	PlanFilter struct {
		Audience string
		Active   *bool
	}

	// ReservationFilter selects reservations; time bounds are ignored when zero.
	ReservationFilter struct {
		OfferingID   string
		PlanID       string
		MemberEmail  string
		Statuses     []string
		StartsFrom   time.Time // StartsAt >= StartsFrom
		StartsBefore time.Time // StartsAt < StartsBefore
		EndsAfter    time.Time // EndsAt > EndsAfter
	}
)

func (f *ProjectFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Category = core.CleanString(f.Category)
	f.Tag = core.CleanString(f.Tag)
}

func (f *OfferingFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Category = core.CleanString(f.Category, true /* lower */)
}

func (f *PlanFilter) Clean() {
	f.Audience = core.CleanString(f.Audience, true /* lower */)
}

func (f *ReservationFilter) Clean() {
	f.OfferingID = core.CleanString(f.OfferingID)
	f.PlanID = core.CleanString(f.PlanID)
	f.MemberEmail = core.CleanString(f.MemberEmail, true /* lower */)
	f.Statuses = core.CleanStrings(f.Statuses)
}

package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/storage/database"
)

// tables in deletion order
var tables = []string{
	"inscription",
	"fablab_reservation",
	"fablab_pricing",
	"fablab_offering",
	"fablab_project",
	"event",
	"formation",
	"app_user",
}

// OpenDB opens a migrated in-memory sqlite database. Callers close it.
func OpenDB() (*database.DB, error) {
	conf := core.NewTestConfig()
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	goose.SetLogger(goose.NopLogger())
	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PrepareDB opens a fresh database for the test and closes it on cleanup.
func PrepareDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := OpenDB()
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ResetDB empties every table.
func ResetDB(t *testing.T, db *database.DB) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("ResetDB(): %v", err)
		}
	}
}

func NewValidator() *validator.Validate {
	validate, _ := NewTranslatedValidator()
	return validate
}

// NewTranslatedValidator returns a validator along with the translator holding its messages.
func NewTranslatedValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateFormation stores a formation with sensible defaults; opts may adjust it before insertion.
func CreateFormation(t *testing.T, repo formation.Repository, title, status string, maxParticipants int, opts ...func(*formation.Formation)) formation.Formation {
	t.Helper()
	now := time.Now().UTC()
	f := formation.Formation{
		Title:           title,
		Slug:            core.Slugify(title),
		Level:           formation.LevelBeginner,
		Price:           decimal.NewFromInt(100),
		MaxParticipants: maxParticipants,
		Objectives:      core.StringList{},
		Modules:         core.StringList{},
		Prerequisites:   core.StringList{},
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(&f)
	}
	f, err := repo.CreateFormation(context.Background(), f)
	if err != nil {
		t.Fatalf("CreateFormation() failed: %v", err)
	}
	return f
}

// CreateEvent stores an event starting at `startsAt` and lasting 2 hours.
func CreateEvent(t *testing.T, repo event.Repository, title string, startsAt time.Time, published, registrationOpen bool, capacity int, tags ...string) event.Event {
	t.Helper()
	now := time.Now().UTC()
	e := event.Event{
		Title:            title,
		Type:             event.TypeWorkshop,
		StartsAt:         startsAt.UTC(),
		EndsAt:           startsAt.UTC().Add(2 * time.Hour),
		Capacity:         capacity,
		RegistrationOpen: registrationOpen,
		Tags:             core.StringList(tags),
		IsPublished:      published,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if e.Tags == nil {
		e.Tags = core.StringList{}
	}
	e, err := repo.CreateEvent(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return e
}

// SetEventType changes the type of a stored event.
func SetEventType(t *testing.T, repo event.Repository, e event.Event, typ string) event.Event {
	t.Helper()
	e.Type = typ
	e, err := repo.UpdateEvent(context.Background(), e)
	if err != nil {
		t.Fatalf("UpdateEvent() failed: %v", err)
	}
	return e
}

func CreateOffering(t *testing.T, repo fablab.Repository, name string, reservable, active bool) fablab.Offering {
	t.Helper()
	now := time.Now().UTC()
	o, err := repo.CreateOffering(context.Background(), fablab.Offering{
		Name:         name,
		Category:     fablab.CategoryMachine,
		HourlyRate:   decimal.NewFromInt(2000),
		IsReservable: reservable,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateOffering() failed: %v", err)
	}
	return o
}

// CreatePlan stores an active monthly plan with `monthlyHours` of machine time (0: unlimited).
func CreatePlan(t *testing.T, repo fablab.Repository, name string, monthlyHours int, active bool) fablab.Plan {
	t.Helper()
	now := time.Now().UTC()
	p, err := repo.CreatePlan(context.Background(), fablab.Plan{
		Name:         name,
		Audience:     fablab.AudienceIndividual,
		Price:        decimal.NewFromInt(10000),
		Period:       fablab.PeriodMonth,
		MonthlyHours: monthlyHours,
		Features:     core.StringList{},
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return p
}

// CreateReservation stores a reservation as is, bypassing the booking rules.
func CreateReservation(t *testing.T, repo fablab.Repository, offering fablab.Offering, plan fablab.Plan, email string, start time.Time, hours int, status string) fablab.Reservation {
	t.Helper()
	now := time.Now().UTC()
	r, err := repo.CreateReservation(context.Background(), fablab.Reservation{
		OfferingID:  offering.ID,
		PlanID:      plan.ID,
		MemberName:  "Member",
		MemberEmail: email,
		StartsAt:    start.UTC(),
		EndsAt:      start.UTC().Add(time.Duration(hours) * time.Hour),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateReservation() failed: %v", err)
	}
	return r
}

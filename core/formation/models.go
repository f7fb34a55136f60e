package formation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crec/backoffice/core"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type Formation struct {
	ID              string          `json:"id" db:"id"`
	Title           string          `json:"title" db:"title" validate:"required,max=255"`
	Slug            string          `json:"slug" db:"slug" validate:"required,max=255,slug"`
	Summary         string          `json:"summary" db:"summary"`
	Description     string          `json:"description" db:"description"`
	Category        string          `json:"category" db:"category" validate:"max=100"`
	Level           string          `json:"level" db:"level" validate:"required,oneof=beginner intermediate advanced"`
	DurationHours   int             `json:"duration_hours" db:"duration_hours" validate:"min=0"`
	Price           decimal.Decimal `json:"price" db:"price"`
	MaxParticipants int             `json:"max_participants" db:"max_participants" validate:"min=0"` // 0: unlimited
	Instructor      string          `json:"instructor" db:"instructor" validate:"max=255"`
	Location        string          `json:"location" db:"location" validate:"max=255"`
	StartDate       *time.Time      `json:"start_date" db:"start_date"` // UTC
	EndDate         *time.Time      `json:"end_date" db:"end_date"`     // UTC
	Objectives      core.StringList `json:"objectives" db:"objectives"`
	Modules         core.StringList `json:"modules" db:"modules"`
	Prerequisites   core.StringList `json:"prerequisites" db:"prerequisites"`
	Status          string          `json:"status" db:"status" validate:"required,oneof=draft published archived"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

func (f Formation) IsPublished() bool { return f.Status == StatusPublished }

// HasCapacity reports whether one more participant fits, given the number already approved.
func (f Formation) HasCapacity(approved int) bool {
	return f.MaxParticipants == 0 || approved < f.MaxParticipants
}

func (f *Formation) clean() {
	f.Title = core.CleanString(f.Title)
	f.Slug = core.CleanString(f.Slug, true /* lower */)
	if f.Slug == "" {
		f.Slug = core.Slugify(f.Title)
	}
	f.Summary = core.CleanString(f.Summary)
	f.Description = core.CleanString(f.Description)
	f.Category = core.CleanString(f.Category)
	f.Level = core.CleanString(f.Level, true)
	f.Instructor = core.CleanString(f.Instructor)
	f.Location = core.CleanString(f.Location)
	f.Status = core.CleanString(f.Status, true)
	if f.Status == "" {
		f.Status = StatusDraft
	}
	f.Objectives = core.CleanStrings(f.Objectives)
	f.Modules = core.CleanStrings(f.Modules)
	f.Prerequisites = core.CleanStrings(f.Prerequisites)
	if f.StartDate != nil {
		t := f.StartDate.UTC()
		f.StartDate = &t
	}
	if f.EndDate != nil {
		t := f.EndDate.UTC()
		f.EndDate = &t
	}
}

// NewFormation contains information needed to create a new Formation.
type NewFormation struct {
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	Summary         string          `json:"summary"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Level           string          `json:"level"`
	DurationHours   int             `json:"duration_hours"`
	Price           decimal.Decimal `json:"price"`
	MaxParticipants int             `json:"max_participants"`
	Instructor      string          `json:"instructor"`
	Location        string          `json:"location"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	Objectives      []string        `json:"objectives"`
	Modules         []string        `json:"modules"`
	Prerequisites   []string        `json:"prerequisites"`
	Status          string          `json:"status"`
}

func (nf NewFormation) formation() Formation {
	return Formation{
		Title:           nf.Title,
		Slug:            nf.Slug,
		Summary:         nf.Summary,
		Description:     nf.Description,
		Category:        nf.Category,
		Level:           nf.Level,
		DurationHours:   nf.DurationHours,
		Price:           nf.Price,
		MaxParticipants: nf.MaxParticipants,
		Instructor:      nf.Instructor,
		Location:        nf.Location,
		StartDate:       nf.StartDate,
		EndDate:         nf.EndDate,
		Objectives:      nf.Objectives,
		Modules:         nf.Modules,
		Prerequisites:   nf.Prerequisites,
		Status:          nf.Status,
	}
}

// UpdateFormation defines what information may be provided to modify an existing Formation.
// Nil fields are left untouched; list fields are replaced when provided.
type UpdateFormation struct {
	Title           *string          `json:"title"`
	Slug            *string          `json:"slug"`
	Summary         *string          `json:"summary"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	Level           *string          `json:"level"`
	DurationHours   *int             `json:"duration_hours"`
	Price           *decimal.Decimal `json:"price"`
	MaxParticipants *int             `json:"max_participants"`
	Instructor      *string          `json:"instructor"`
	Location        *string          `json:"location"`
	StartDate       *time.Time       `json:"start_date"`
	EndDate         *time.Time       `json:"end_date"`
	Objectives      []string         `json:"objectives"`
	Modules         []string         `json:"modules"`
	Prerequisites   []string         `json:"prerequisites"`
	Status          *string          `json:"status"`
}

func (uf UpdateFormation) apply(f *Formation) {
	if uf.Title != nil {
		f.Title = *uf.Title
	}
	if uf.Slug != nil {
		f.Slug = *uf.Slug
	}
	if uf.Summary != nil {
		f.Summary = *uf.Summary
	}
	if uf.Description != nil {
		f.Description = *uf.Description
	}
	if uf.Category != nil {
		f.Category = *uf.Category
	}
	if uf.Level != nil {
		f.Level = *uf.Level
	}
	if uf.DurationHours != nil {
		f.DurationHours = *uf.DurationHours
	}
	if uf.Price != nil {
		f.Price = *uf.Price
	}
	if uf.MaxParticipants != nil {
		f.MaxParticipants = *uf.MaxParticipants
	}
	if uf.Instructor != nil {
		f.Instructor = *uf.Instructor
	}
	if uf.Location != nil {
		f.Location = *uf.Location
	}
	if uf.StartDate != nil {
		f.StartDate = uf.StartDate
	}
	if uf.EndDate != nil {
		f.EndDate = uf.EndDate
	}
	if uf.Objectives != nil {
		f.Objectives = uf.Objectives
	}
	if uf.Modules != nil {
		f.Modules = uf.Modules
	}
	if uf.Prerequisites != nil {
		f.Prerequisites = uf.Prerequisites
	}
	if uf.Status != nil {
		f.Status = *uf.Status
	}
}

type QueryFilter struct {
	Search   string
	Category string
	Level    string
	Status   string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Category = core.CleanString(qf.Category)
	qf.Level = core.CleanString(qf.Level, true)
	qf.Status = core.CleanString(qf.Status, true)
}

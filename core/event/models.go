package event

import (
	"strings"
	"time"

	"github.com/crec/backoffice/core"
)

// Types
const (
	TypeWorkshop   = "workshop"
	TypeConference = "conference"
	TypeExhibition = "exhibition"
	TypeOpenDay    = "open_day"
	TypeHackathon  = "hackathon"
	TypeMeetup     = "meetup"
)

// Periods
const (
	PeriodUpcoming = "upcoming"
	PeriodPast     = "past"
)

var Types = []string{TypeWorkshop, TypeConference, TypeExhibition, TypeOpenDay, TypeHackathon, TypeMeetup}

type Event struct {
	ID               string          `json:"id" db:"id"`
	Title            string          `json:"title" db:"title" validate:"required,max=255"`
	Description      string          `json:"description" db:"description"`
	Type             string          `json:"type" db:"type" validate:"required,oneof=workshop conference exhibition open_day hackathon meetup"`
	Location         string          `json:"location" db:"location" validate:"max=255"`
	StartsAt         time.Time       `json:"starts_at" db:"starts_at" validate:"required"` // UTC
	EndsAt           time.Time       `json:"ends_at" db:"ends_at" validate:"required"`     // UTC
	Capacity         int             `json:"capacity" db:"capacity" validate:"min=0"`      // 0: unlimited
	RegistrationOpen bool            `json:"registration_open" db:"registration_open"`
	ImageURL         string          `json:"image_url" db:"image_url" validate:"omitempty,url,max=500"`
	Tags             core.StringList `json:"tags" db:"tags"`
	IsPublished      bool            `json:"is_published" db:"is_published"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

// AcceptsRegistrations reports whether the public may apply to the event at `now`.
func (e Event) AcceptsRegistrations(now time.Time) bool {
	return e.IsPublished && e.RegistrationOpen && e.EndsAt.After(now)
}

func (e *Event) clean() {
	e.Title = core.CleanString(e.Title)
	e.Description = core.CleanString(e.Description)
	e.Type = core.CleanString(e.Type, true /* lower */)
	e.Location = core.CleanString(e.Location)
	e.ImageURL = core.CleanString(e.ImageURL)
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range core.CleanStrings(e.Tags) {
		if tag = strings.ToLower(tag); !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	e.Tags = core.StringList(tags)
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Type             string    `json:"type"`
	Location         string    `json:"location"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	Capacity         int       `json:"capacity"`
	RegistrationOpen bool      `json:"registration_open"`
	ImageURL         string    `json:"image_url"`
	Tags             []string  `json:"tags"`
	IsPublished      bool      `json:"is_published"`
}

func (ne NewEvent) event() Event {
	return Event{
		Title:            ne.Title,
		Description:      ne.Description,
		Type:             ne.Type,
		Location:         ne.Location,
		StartsAt:         ne.StartsAt,
		EndsAt:           ne.EndsAt,
		Capacity:         ne.Capacity,
		RegistrationOpen: ne.RegistrationOpen,
		ImageURL:         ne.ImageURL,
		Tags:             ne.Tags,
		IsPublished:      ne.IsPublished,
	}
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	Type             *string    `json:"type"`
	Location         *string    `json:"location"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	Capacity         *int       `json:"capacity"`
	RegistrationOpen *bool      `json:"registration_open"`
	ImageURL         *string    `json:"image_url"`
	Tags             []string   `json:"tags"`
	IsPublished      *bool      `json:"is_published"`
}

func (ue UpdateEvent) apply(e *Event) {
	if ue.Title != nil {
		e.Title = *ue.Title
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Type != nil {
		e.Type = *ue.Type
	}
	if ue.Location != nil {
		e.Location = *ue.Location
	}
	if ue.StartsAt != nil {
		e.StartsAt = *ue.StartsAt
	}
	if ue.EndsAt != nil {
		e.EndsAt = *ue.EndsAt
	}
	if ue.Capacity != nil {
		e.Capacity = *ue.Capacity
	}
	if ue.RegistrationOpen != nil {
		e.RegistrationOpen = *ue.RegistrationOpen
	}
	if ue.ImageURL != nil {
		e.ImageURL = *ue.ImageURL
	}
	if ue.Tags != nil {
		e.Tags = ue.Tags
	}
	if ue.IsPublished != nil {
		e.IsPublished = *ue.IsPublished
	}
}

type QueryFilter struct {
	Search    string
	Type      string
	Period    string // upcoming | past
	Tag       string
	Published *bool
	Now       time.Time // reference for Period; set by the service
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
	qf.Period = core.CleanString(qf.Period, true)
	qf.Tag = core.CleanString(qf.Tag, true)
}

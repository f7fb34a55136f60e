package inscription

import (
	"time"

	"github.com/crec/backoffice/core"
)

// Kinds
const (
	KindFormation = "formation"
	KindEvent     = "event"
	KindFabLab    = "fablab"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusWaitlisted = "waitlisted"
)

var (
	Statuses = []string{StatusPending, StatusApproved, StatusRejected, StatusWaitlisted}

	// LiveStatuses are the statuses blocking a second inscription of the same person to the same target.
	LiveStatuses = []string{StatusPending, StatusApproved, StatusWaitlisted}

	kindLabels = map[string]string{
		KindFormation: "formation",
		KindEvent:     "événement",
		KindFabLab:    "adhésion FabLab",
	}
)

// Inscription is an application to a formation, an event or a FabLab membership plan.
type Inscription struct {
	ID           string     `json:"id" db:"id"`
	Kind         string     `json:"kind" db:"kind"`
	TargetID     string     `json:"target_id" db:"target_id"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Email        string     `json:"email" db:"email"`
	Phone        string     `json:"phone" db:"phone"`
	Organization string     `json:"organization" db:"organization"`
	Motivation   string     `json:"motivation" db:"motivation"`
	Status       string     `json:"status" db:"status"`
	ReviewNote   string     `json:"review_note" db:"review_note"`
	ReviewedBy   string     `json:"reviewed_by" db:"reviewed_by"` // user ID
	ReviewedAt   *time.Time `json:"reviewed_at" db:"reviewed_at"` // UTC
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`   // UTC
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`   // UTC
}

func (i Inscription) FullName() string {
	return core.CleanString(i.FirstName + " " + i.LastName)
}

// NewInscription is an application submitted by the public.
type NewInscription struct {
	Kind         string `json:"kind" validate:"required,oneof=formation event fablab"`
	TargetID     string `json:"target_id" validate:"required"`
	FirstName    string `json:"first_name" validate:"required,max=150"`
	LastName     string `json:"last_name" validate:"required,max=150"`
	Email        string `json:"email" validate:"required,email,max=255"`
	Phone        string `json:"phone" validate:"max=50"`
	Organization string `json:"organization" validate:"max=255"`
	Motivation   string `json:"motivation" validate:"max=5000"`
}

func (ni *NewInscription) clean() {
	ni.Kind = core.CleanString(ni.Kind, true /* lower */)
	ni.TargetID = core.CleanString(ni.TargetID)
	ni.FirstName = core.CleanString(ni.FirstName)
	ni.LastName = core.CleanString(ni.LastName)
	ni.Email = core.CleanString(ni.Email, true)
	ni.Phone = core.CleanString(ni.Phone)
	ni.Organization = core.CleanString(ni.Organization)
	ni.Motivation = core.CleanString(ni.Motivation)
}

// Review is a staff decision on an inscription.
type Review struct {
	Status string `json:"status" validate:"required,oneof=approved rejected waitlisted"`
	Note   string `json:"note" validate:"max=2000"`
}

type QueryFilter struct {
	Kind     string
	TargetID string
	Statuses []string
	Email    string
	Search   string
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.TargetID = core.CleanString(qf.TargetID)
	qf.Statuses = core.CleanStrings(qf.Statuses)
	qf.Email = core.CleanString(qf.Email, true)
	qf.Search = core.CleanString(qf.Search)
}

// Dashboard sums up the back-office work queues.
type Dashboard struct {
	Inscriptions        map[string]int `json:"inscriptions"` // per status
	PendingReservations int            `json:"pending_reservations"`
	PublishedFormations int            `json:"published_formations"`
	UpcomingEvents      int            `json:"upcoming_events"`
}

package inscription

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("inscription")

	errUnknownTarget   = errors.New("unknown target")
	errClosedTarget    = errors.New("registrations are closed")
	errAlreadyApplied  = errors.New("an inscription with this email is already in progress")
	errBadTransition   = errors.New("invalid status change")
	errCapacityReached = errors.New("maximum number of participants reached")

	// allowed status changes
	transitions = map[string][]string{
		StatusPending:    {StatusApproved, StatusRejected, StatusWaitlisted},
		StatusWaitlisted: {StatusApproved, StatusRejected},
	}

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateInscription(ctx context.Context, i Inscription) (Inscription, error)
		// QueryInscriptions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of FirstName, LastName, Email or Organization.
		QueryInscriptions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Inscription, error)
		GetInscription(ctx context.Context, id string) (Inscription, error)
		UpdateInscription(ctx context.Context, i Inscription) (Inscription, error)
		DeleteInscriptionsByID(ctx context.Context, ids ...string) (int, error)
		CountInscriptions(ctx context.Context, filter *QueryFilter) (int, error)
		// LockTarget serialises the reviews of a target until the end of the transaction carried by ctx.
		LockTarget(ctx context.Context, kind, targetID string) error
		// CountByStatus counts the inscriptions of `kind` (all kinds when empty) per status.
		CountByStatus(ctx context.Context, kind string) (map[string]int, error)
	}

	Formations interface {
		Get(ctx context.Context, id string) (formation.Formation, error)
		CountPublished(ctx context.Context) (int, error)
	}

	Events interface {
		Get(ctx context.Context, id string) (event.Event, error)
		AcceptsRegistrations(e event.Event) bool
		CountUpcoming(ctx context.Context) (int, error)
	}

	FabLab interface {
		GetPlan(ctx context.Context, id string) (fablab.Plan, error)
		CountPendingReservations(ctx context.Context) (int, error)
	}

	Service struct {
		repo       Repository
		tx         core.Transactor
		mailSvc    core.EmailService
		formations Formations
		events     Events
		fablab     FabLab
		validate   *validator.Validate
	}

	// target is what an inscription applies to.
	target struct {
		title    string
		open     bool
		capacity int // 0: unlimited
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	mailSvc core.EmailService,
	formations Formations,
	events Events,
	fablab FabLab,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:       repo,
		tx:         tx,
		mailSvc:    mailSvc,
		formations: formations,
		events:     events,
		fablab:     fablab,
		validate:   validate,
	}
}

func (svc *Service) target(ctx context.Context, kind, id string) (target, error) {
	switch kind {
	case KindFormation:
		f, err := svc.formations.Get(ctx, id)
		if err != nil {
			return target{}, err
		}
		return target{title: f.Title, open: f.IsPublished(), capacity: f.MaxParticipants}, nil
	case KindEvent:
		e, err := svc.events.Get(ctx, id)
		if err != nil {
			return target{}, err
		}
		return target{title: e.Title, open: svc.events.AcceptsRegistrations(e), capacity: e.Capacity}, nil
	case KindFabLab:
		p, err := svc.fablab.GetPlan(ctx, id)
		if err != nil {
			return target{}, err
		}
		return target{title: p.Name, open: p.IsActive}, nil
	}
	return target{}, errUnknownTarget
}

// Submit registers an application and acknowledges it by email.
func (svc *Service) Submit(ctx context.Context, ni NewInscription) (Inscription, error) {
	ni.clean()
	if err := svc.validate.Struct(ni); err != nil {
		return Inscription{}, err
	}

	var (
		ins Inscription
		tgt target
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if tgt, err = svc.target(ctx, ni.Kind, ni.TargetID); err != nil {
			if core.IsNotFound(err) || err == errUnknownTarget {
				return core.NewFieldError("target_id", errUnknownTarget.Error())
			}
			return err
		}
		if !tgt.open {
			return core.NewFieldError("target_id", errClosedTarget.Error())
		}

		n, err := svc.repo.CountInscriptions(ctx, &QueryFilter{
			Kind:     ni.Kind,
			TargetID: ni.TargetID,
			Email:    ni.Email,
			Statuses: LiveStatuses,
		})
		if err != nil {
			return err
		}
		if n > 0 {
			return core.NewFieldError("email", errAlreadyApplied.Error())
		}

		now := nowFunc().UTC()
		ins, err = svc.repo.CreateInscription(ctx, Inscription{
			Kind:         ni.Kind,
			TargetID:     ni.TargetID,
			FirstName:    ni.FirstName,
			LastName:     ni.LastName,
			Email:        ni.Email,
			Phone:        ni.Phone,
			Organization: ni.Organization,
			Motivation:   ni.Motivation,
			Status:       StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		return Inscription{}, err
	}

	svc.sendMail(ins, tgt, "inscription_received")
	return ins, nil
}

// Review applies a staff decision. Approvals respect the target's capacity.
func (svc *Service) Review(ctx context.Context, id, reviewerID string, r Review) (Inscription, error) {
	r.Note = core.CleanString(r.Note)
	if err := svc.validate.Struct(r); err != nil {
		return Inscription{}, err
	}

	var (
		ins Inscription
		tgt target
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if ins, err = svc.repo.GetInscription(ctx, id); err != nil {
			return err
		}
		if !canTransition(ins.Status, r.Status) {
			return core.NewValidationError(errBadTransition, core.FieldError{
				Field: "status",
				Error: fmt.Sprintf("cannot go from %s to %s", ins.Status, r.Status),
			})
		}

		// the target may have been deleted since; the review is still recorded
		tgt, err = svc.target(ctx, ins.Kind, ins.TargetID)
		if err != nil && !core.IsNotFound(err) {
			return err
		}

		if r.Status == StatusApproved && tgt.capacity > 0 {
			if err := svc.repo.LockTarget(ctx, ins.Kind, ins.TargetID); err != nil {
				return err
			}
			approved, err := svc.repo.CountInscriptions(ctx, &QueryFilter{
				Kind:     ins.Kind,
				TargetID: ins.TargetID,
				Statuses: []string{StatusApproved},
			})
			if err != nil {
				return err
			}
			if approved >= tgt.capacity {
				return core.NewFieldError("status", errCapacityReached.Error())
			}
		}

		now := nowFunc().UTC()
		ins.Status = r.Status
		ins.ReviewNote = r.Note
		ins.ReviewedBy = reviewerID
		ins.ReviewedAt = &now
		ins.UpdatedAt = now
		ins, err = svc.repo.UpdateInscription(ctx, ins)
		return err
	})
	if err != nil {
		return Inscription{}, err
	}

	svc.sendMail(ins, tgt, "inscription_"+ins.Status)
	return ins, nil
}

func canTransition(from, to string) bool {
	for _, status := range transitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Inscription, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryInscriptions(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Inscription, error) {
	return svc.repo.GetInscription(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteInscriptionsByID(ctx, ids...)
	return err
}

// Dashboard counts what awaits the staff.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d   Dashboard
		err error
	)
	if d.Inscriptions, err = svc.repo.CountByStatus(ctx, ""); err != nil {
		return Dashboard{}, err
	}
	for _, status := range Statuses {
		if _, ok := d.Inscriptions[status]; !ok {
			d.Inscriptions[status] = 0
		}
	}
	if d.PendingReservations, err = svc.fablab.CountPendingReservations(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.PublishedFormations, err = svc.formations.CountPublished(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.UpcomingEvents, err = svc.events.CountUpcoming(ctx); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

func (svc *Service) sendMail(ins Inscription, tgt target, tmpl string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: ins.FullName(), Address: ins.Email}},
		TemplateName: tmpl,
		TemplateData: map[string]string{
			"first_name": ins.FirstName,
			"target":     tgt.title,
			"kind_label": kindLabels[ins.Kind],
			"note":       ins.ReviewNote,
		},
	})
}

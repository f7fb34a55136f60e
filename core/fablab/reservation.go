package fablab

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
)

const (
	dateFormat = "02/01/2006"
	timeFormat = "15:04"
	dayFormat  = "2006-01-02"
	monthFmt   = "2006-01"
)

var (
	errSlotTaken     = errors.New("this slot is already booked")
	errNotReservable = errors.New("this service cannot be reserved")
	errPlanInactive  = errors.New("this pricing plan is not available")
	errQuotaExceeded = errors.New("monthly hours quota exceeded")
	errBadTransition = errors.New("invalid status change")

	// allowed status changes
	transitions = map[string][]string{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCancelled},
	}
)

type (
	Slot struct {
		StartsAt time.Time `json:"starts_at"`
		EndsAt   time.Time `json:"ends_at"`
	}

	// Availability describes an offering's bookable time on a given day.
	Availability struct {
		OfferingID  string `json:"offering_id"`
		Date        string `json:"date"` // YYYY-MM-DD
		OpeningHour int    `json:"opening_hour"`
		ClosingHour int    `json:"closing_hour"`
		MaxHours    int    `json:"max_hours"`
		Busy        []Slot `json:"busy"`
		Free        []Slot `json:"free"`
	}
)

// openingBounds returns the opening & closing instants (UTC) of t's day.
func (svc *Service) openingBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(svc.conf.OpeningHour) * time.Hour), day.Add(time.Duration(svc.conf.ClosingHour) * time.Hour)
}

// checkSlot applies the time rules of a reservation request.
func (svc *Service) checkSlot(start, end, now time.Time) error {
	if !end.After(start) {
		return core.NewFieldError("ends_at", "must be after starts_at")
	}
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return core.NewFieldError("ends_at", "must be on the same day as starts_at")
	}
	opening, closing := svc.openingBounds(start)
	if start.Before(opening) || end.After(closing) {
		return core.NewFieldError(
			"starts_at",
			fmt.Sprintf("the FabLab is open from %02d:00 to %02d:00", svc.conf.OpeningHour, svc.conf.ClosingHour),
		)
	}
	if maxHours := svc.conf.MaxReservationHours; maxHours > 0 && end.Sub(start) > time.Duration(maxHours)*time.Hour {
		return core.NewFieldError("ends_at", fmt.Sprintf("a reservation cannot exceed %d hours", maxHours))
	}
	if !start.After(now) {
		return core.NewFieldError("starts_at", "must be in the future")
	}
	return nil
}

// usedHours sums the durations of the member's live reservations starting in the month of `at`.
func (svc *Service) usedHours(ctx context.Context, email string, at time.Time) (float64, error) {
	from, to := monthBounds(at)
	list, err := svc.repo.QueryReservations(ctx, &ReservationFilter{
		MemberEmail:  email,
		Statuses:     LiveStatuses,
		StartsFrom:   from,
		StartsBefore: to,
	}, nil)
	if err != nil {
		return 0, err
	}
	var used float64
	for _, r := range list {
		used += r.Hours()
	}
	return used, nil
}

// MemberQuota computes a member's usage of their plan allowance for the month of `month`.
func (svc *Service) MemberQuota(ctx context.Context, email, planID string, month time.Time) (Quota, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return Quota{}, core.NewFieldError("email", "this field is required")
	}
	plan, err := svc.repo.GetPlan(ctx, planID)
	if err != nil {
		return Quota{}, err
	}
	if month.IsZero() {
		month = nowFunc()
	}
	used, err := svc.usedHours(ctx, email, month)
	if err != nil {
		return Quota{}, err
	}
	q := ComputeQuota(float64(plan.MonthlyHours), used)
	q.Month = month.UTC().Format(monthFmt)
	return q, nil
}

// Reserve books an offering for a member. The checks and the insert run in a single transaction.
// It returns the quota including the new reservation.
func (svc *Service) Reserve(ctx context.Context, nr NewReservation) (Reservation, Quota, error) {
	nr.clean()
	if err := svc.validate.Struct(nr); err != nil {
		return Reservation{}, Quota{}, err
	}
	now := nowFunc().UTC()
	if err := svc.checkSlot(nr.StartsAt, nr.EndsAt, now); err != nil {
		return Reservation{}, Quota{}, err
	}

	var (
		res      Reservation
		quota    Quota
		offering Offering
	)
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		offering, err = svc.repo.GetOffering(ctx, nr.OfferingID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("offering_id", errNotReservable.Error())
			}
			return err
		}
		if !offering.IsActive || !offering.IsReservable {
			return core.NewFieldError("offering_id", errNotReservable.Error())
		}
		if err = svc.repo.LockOffering(ctx, offering.ID); err != nil {
			return err
		}

		plan, err := svc.repo.GetPlan(ctx, nr.PlanID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("plan_id", errPlanInactive.Error())
			}
			return err
		}
		if !plan.IsActive {
			return core.NewFieldError("plan_id", errPlanInactive.Error())
		}

		overlapping, err := svc.repo.CountReservations(ctx, &ReservationFilter{
			OfferingID:   offering.ID,
			Statuses:     LiveStatuses,
			StartsBefore: nr.EndsAt,
			EndsAfter:    nr.StartsAt,
		})
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return core.NewFieldError("starts_at", errSlotTaken.Error())
		}

		used, err := svc.usedHours(ctx, nr.MemberEmail, nr.StartsAt)
		if err != nil {
			return err
		}
		hours := nr.EndsAt.Sub(nr.StartsAt).Hours()
		quota = ComputeQuota(float64(plan.MonthlyHours), used)
		if !quota.Allows(hours) {
			return core.NewFieldError(
				"quota",
				fmt.Sprintf("%s: %s h remaining this month", errQuotaExceeded, formatHours(quota.RemainingHours)),
			)
		}

		res, err = svc.repo.CreateReservation(ctx, Reservation{
			OfferingID:  offering.ID,
			PlanID:      plan.ID,
			MemberName:  nr.MemberName,
			MemberEmail: nr.MemberEmail,
			StartsAt:    nr.StartsAt,
			EndsAt:      nr.EndsAt,
			Purpose:     nr.Purpose,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		quota = ComputeQuota(float64(plan.MonthlyHours), used+hours)
		return nil
	})
	if err != nil {
		return Reservation{}, Quota{}, err
	}
	quota.Month = res.StartsAt.Format(monthFmt)

	allowed := formatHours(quota.AllowedHours)
	if quota.Unlimited {
		allowed = "∞"
	}
	svc.sendReservationMail(res, offering, "reservation_received", map[string]string{
		"hours":         formatHours(res.Hours()),
		"used_hours":    formatHours(quota.UsedHours),
		"allowed_hours": allowed,
	})
	return res, quota, nil
}

func (svc *Service) QueryReservations(ctx context.Context, filter *ReservationFilter, ordering []core.DBOrdering) ([]Reservation, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryReservations(ctx, filter, ordering)
}

func (svc *Service) GetReservation(ctx context.Context, id string) (Reservation, error) {
	return svc.repo.GetReservation(ctx, id)
}

func (svc *Service) CountPendingReservations(ctx context.Context) (int, error) {
	return svc.repo.CountReservations(ctx, &ReservationFilter{Statuses: []string{StatusPending}})
}

// Review confirms or cancels a reservation and notifies the member.
func (svc *Service) Review(ctx context.Context, id string, rr ReviewReservation) (Reservation, error) {
	rr.AdminNote = core.CleanString(rr.AdminNote)
	if err := svc.validate.Struct(rr); err != nil {
		return Reservation{}, err
	}

	res, err := svc.repo.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if !canTransition(res.Status, rr.Status) {
		return Reservation{}, core.NewValidationError(errBadTransition, core.FieldError{
			Field: "status",
			Error: fmt.Sprintf("cannot go from %s to %s", res.Status, rr.Status),
		})
	}

	res.Status = rr.Status
	res.AdminNote = rr.AdminNote
	res.UpdatedAt = nowFunc().UTC()
	if res, err = svc.repo.UpdateReservation(ctx, res); err != nil {
		return Reservation{}, err
	}

	offering, err := svc.repo.GetOffering(ctx, res.OfferingID)
	if err != nil && !core.IsNotFound(err) {
		return Reservation{}, err
	}
	svc.sendReservationMail(res, offering, "reservation_"+res.Status, map[string]string{"note": res.AdminNote})
	return res, nil
}

func canTransition(from, to string) bool {
	for _, status := range transitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// Availability lists the busy & free slots of a reservable offering on `day`.
func (svc *Service) Availability(ctx context.Context, offeringID string, day time.Time) (Availability, error) {
	offering, err := svc.repo.GetOffering(ctx, offeringID)
	if err != nil {
		return Availability{}, err
	}
	if !offering.IsActive || !offering.IsReservable {
		return Availability{}, ErrOfferingNotFound
	}

	opening, closing := svc.openingBounds(day)
	list, err := svc.repo.QueryReservations(ctx, &ReservationFilter{
		OfferingID:   offering.ID,
		Statuses:     LiveStatuses,
		StartsBefore: closing,
		EndsAfter:    opening,
	}, []core.DBOrdering{{Field: "starts_at", Ascending: true}})
	if err != nil {
		return Availability{}, err
	}

	av := Availability{
		OfferingID:  offering.ID,
		Date:        opening.Format(dayFormat),
		OpeningHour: svc.conf.OpeningHour,
		ClosingHour: svc.conf.ClosingHour,
		MaxHours:    svc.conf.MaxReservationHours,
		Busy:        make([]Slot, 0, len(list)),
		Free:        make([]Slot, 0),
	}
	for _, r := range list {
		av.Busy = append(av.Busy, Slot{StartsAt: r.StartsAt.UTC(), EndsAt: r.EndsAt.UTC()})
	}
	av.Free = freeSlots(opening, closing, av.Busy)
	return av, nil
}

// freeSlots returns the gaps between the busy slots within [opening, closing].
func freeSlots(opening, closing time.Time, busy []Slot) []Slot {
	sort.Slice(busy, func(i, j int) bool { return busy[i].StartsAt.Before(busy[j].StartsAt) })
	free := make([]Slot, 0)
	cursor := opening
	for _, s := range busy {
		if s.StartsAt.After(cursor) {
			free = append(free, Slot{StartsAt: cursor, EndsAt: minTime(s.StartsAt, closing)})
		}
		if s.EndsAt.After(cursor) {
			cursor = s.EndsAt
		}
		if !cursor.Before(closing) {
			return free
		}
	}
	if cursor.Before(closing) {
		free = append(free, Slot{StartsAt: cursor, EndsAt: closing})
	}
	return free
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func formatHours(h float64) string {
	return strconv.FormatFloat(roundHours(h), 'f', -1, 64)
}

func (svc *Service) sendReservationMail(res Reservation, offering Offering, tmpl string, data map[string]string) {
	if data == nil {
		data = make(map[string]string)
	}
	data["name"] = res.MemberName
	data["service"] = offering.Name
	data["date"] = res.StartsAt.UTC().Format(dateFormat)
	data["start"] = res.StartsAt.UTC().Format(timeFormat)
	data["end"] = res.EndsAt.UTC().Format(timeFormat)

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: res.MemberName, Address: res.MemberEmail}},
		TemplateName: tmpl,
		TemplateData: data,
	})
}

package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func bindOrdering(ctx echo.Context) []core.DBOrdering {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return ordering.Orderings
}

// parseBool returns nil when `s` is empty or not a boolean.
func parseBool(s string) *bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		return &b
	}
	return nil
}

// parseTime accepts RFC3339 timestamps and YYYY-MM-DD dates (UTC).
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}

// Query params of the list endpoints.
type (
	userQuery struct {
		Search      string   `query:"search"`
		Roles       []string `query:"role"`
		IsActive    string   `query:"is_active"`
		CreatedFrom string   `query:"created_from"`
		CreatedTo   string   `query:"created_to"`
	}

	formationQuery struct {
		Search   string `query:"search"`
		Category string `query:"category"`
		Level    string `query:"level"`
		Status   string `query:"status"`
	}

	eventQuery struct {
		Search    string `query:"search"`
		Type      string `query:"type"`
		Period    string `query:"period"`
		Tag       string `query:"tag"`
		Published string `query:"published"`
	}

	projectQuery struct {
		Search   string `query:"search"`
		Category string `query:"category"`
		Tag      string `query:"tag"`
		Featured string `query:"featured"`
	}

	offeringQuery struct {
		Search     string `query:"search"`
		Category   string `query:"category"`
		Active     string `query:"active"`
		Reservable string `query:"reservable"`
	}

	planQuery struct {
		Audience string `query:"audience"`
		Active   string `query:"active"`
	}

	reservationQuery struct {
		OfferingID  string   `query:"service_id"`
		PlanID      string   `query:"plan_id"`
		MemberEmail string   `query:"email"`
		Statuses    []string `query:"status"`
		From        string   `query:"from"`
		To          string   `query:"to"`
	}

	inscriptionQuery struct {
		Kind     string   `query:"kind"`
		TargetID string   `query:"target_id"`
		Statuses []string `query:"status"`
		Email    string   `query:"email"`
		Search   string   `query:"search"`
	}

	quotaQuery struct {
		Email  string `query:"email"`
		PlanID string `query:"plan_id"`
		Month  string `query:"month"`
	}

	idsQuery struct {
		IDs []string `query:"id"`
	}
)

func (q userQuery) filter() *user.QueryFilter {
	f := &user.QueryFilter{
		Search:      q.Search,
		Roles:       q.Roles,
		IsActive:    parseBool(q.IsActive),
		CreatedFrom: parseTime(q.CreatedFrom),
		CreatedTo:   parseTime(q.CreatedTo),
	}
	f.Clean()
	return f
}

func (q formationQuery) filter() *formation.QueryFilter {
	return &formation.QueryFilter{Search: q.Search, Category: q.Category, Level: q.Level, Status: q.Status}
}

func (q eventQuery) filter() *event.QueryFilter {
	return &event.QueryFilter{Search: q.Search, Type: q.Type, Period: q.Period, Tag: q.Tag, Published: parseBool(q.Published)}
}

func (q projectQuery) filter() *fablab.ProjectFilter {
	return &fablab.ProjectFilter{Search: q.Search, Category: q.Category, Tag: q.Tag, Featured: parseBool(q.Featured)}
}

func (q offeringQuery) filter() *fablab.OfferingFilter {
	return &fablab.OfferingFilter{
		Search:     q.Search,
		Category:   q.Category,
		Active:     parseBool(q.Active),
		Reservable: parseBool(q.Reservable),
	}
}

func (q planQuery) filter() *fablab.PlanFilter {
	return &fablab.PlanFilter{Audience: q.Audience, Active: parseBool(q.Active)}
}

func (q reservationQuery) filter() *fablab.ReservationFilter {
	return &fablab.ReservationFilter{
		OfferingID:   q.OfferingID,
		PlanID:       q.PlanID,
		MemberEmail:  q.MemberEmail,
		Statuses:     q.Statuses,
		StartsFrom:   parseTime(q.From),
		StartsBefore: parseTime(q.To),
	}
}

func (q inscriptionQuery) filter() *inscription.QueryFilter {
	return &inscription.QueryFilter{
		Kind:     q.Kind,
		TargetID: q.TargetID,
		Statuses: q.Statuses,
		Email:    q.Email,
		Search:   q.Search,
	}
}

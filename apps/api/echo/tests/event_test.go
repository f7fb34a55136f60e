package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/tests"
)

func Test_eventApi_public(t *testing.T) {
	app := setup(t)
	now := time.Now().UTC().Truncate(time.Second)
	past := testutil.CreateEvent(t, app.events, "Maker Faire 2019", now.AddDate(-1, 0, 0), true, false, 0, "fablab")
	soon := testutil.CreateEvent(t, app.events, "Arduino Night", now.AddDate(0, 0, 7), true, true, 20, "fablab", "arduino")
	later := testutil.CreateEvent(t, app.events, "Open Day", now.AddDate(0, 1, 0), true, false, 0)
	hidden := testutil.CreateEvent(t, app.events, "Secret Meetup", now.AddDate(0, 0, 3), false, true, 0)
	soon = testutil.SetEventType(t, app.events, soon, event.TypeHackathon)
	hidden = testutil.SetEventType(t, app.events, hidden, event.TypeHackathon)

	t.Run("query", func(t *testing.T) {
		tests := []httpTest{
			{name: "published only", wantIDs: []string{later.ID, soon.ID, past.ID}},
			{name: "published cannot be overridden", path: "?published=false", wantIDs: []string{later.ID, soon.ID, past.ID}},
			{name: "upcoming, soonest first", path: "?period=upcoming", wantIDs: []string{soon.ID, later.ID}},
			{name: "past", path: "?period=past", wantIDs: []string{past.ID}},
			{name: "tag", path: "?tag=FabLab&ordering=starts_at", wantIDs: []string{past.ID, soon.ID}},
			{name: "search", path: "?search=arduino", wantIDs: []string{soon.ID}},
			{name: "type", path: "?type=hackathon", wantIDs: []string{soon.ID}},
			{name: "type, mixed case", path: "?type=HackaThon", wantIDs: []string{soon.ID}},
			{name: "other type", path: "?type=workshop", wantIDs: []string{later.ID, past.ID}},
			{name: "type without events", path: "?type=meetup", wantIDs: []string{}},
			{name: "bad period", path: "?period=someday", wantCode: http.StatusBadRequest, wantData: []byte(`{"period":"must be one of: upcoming, past"}`)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.wantCode == 0 {
					tt.wantCode = http.StatusOK
				}
				tt.path = "/v1/events" + tt.path
				check(t, tt, app.serve(tt))
			})
		}
	})

	t.Run("retrieve", func(t *testing.T) {
		tests := []struct {
			httpTest
			wantAccepts bool
		}{
			{httpTest{name: "open registrations", path: soon.ID, wantCode: http.StatusOK}, true},
			{httpTest{name: "closed registrations", path: later.ID, wantCode: http.StatusOK}, false},
			{httpTest{name: "over", path: past.ID, wantCode: http.StatusOK}, false},
			{httpTest{name: "unpublished", path: hidden.ID, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "event not found"})}, false},
			{httpTest{name: "unknown", path: "unknown", wantCode: http.StatusNotFound}, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/v1/events/" + tt.path
				rec := app.serve(tt.httpTest)
				check(t, tt.httpTest, rec)
				if rec.Code != http.StatusOK {
					return
				}
				var got map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, tt.wantAccepts, got["accepts_registrations"])
			})
		}
	})
}

func Test_eventApi_admin(t *testing.T) {
	app := setup(t)
	token := app.token(t, app.staff(t, "events", user.RoleStaffEvents))
	now := time.Now().UTC().Truncate(time.Second)
	hidden := testutil.CreateEvent(t, app.events, "Secret Meetup", now.AddDate(0, 0, 3), false, true, 0)

	t.Run("permissions", func(t *testing.T) {
		tests := []httpTest{
			{name: "no token", wantCode: http.StatusUnauthorized},
			{name: "fablab staff", token: app.token(t, app.staff(t, "maker", user.RoleStaffFabLab)), wantCode: http.StatusForbidden},
			{name: "events staff sees unpublished", token: token, wantCode: http.StatusOK, wantIDs: []string{hidden.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/v1/admin/events"
				check(t, tt, app.serve(tt))
			})
		}
	})

	t.Run("types", func(t *testing.T) {
		tt := httpTest{path: "/v1/admin/events/types", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, event.Types)}
		check(t, tt, app.serve(tt))
	})

	t.Run("create", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "required fields",
				body:     []byte(`{}`),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"title":"this field is required","type":"this field is required","starts_at":"this field is required","ends_at":"this field is required"}`),
			},
			{
				name:     "ends before it starts",
				body:     []byte(`{"title":"Hackathon","type":"hackathon","starts_at":"2026-05-02T09:00:00Z","ends_at":"2026-05-01T18:00:00Z"}`),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"ends_at":"must not be before starts_at"}`),
			},
			{
				name:     "ok",
				body:     []byte(`{"title":"Hackathon","type":"Hackathon","starts_at":"2026-05-01T09:00:00+01:00","ends_at":"2026-05-02T18:00:00+01:00","tags":[" Code ","code",""],"capacity":50}`),
				wantCode: http.StatusCreated,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method, tt.path, tt.token = http.MethodPost, "/v1/admin/events", token
				rec := app.serve(tt)
				check(t, tt, rec)
				if tt.wantCode != http.StatusCreated {
					return
				}
				var got event.Event
				decode(t, rec, &got)
				assert.Equal(t, event.TypeHackathon, got.Type)
				assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), got.StartsAt.UTC())
				assert.Equal(t, []string{"code"}, []string(got.Tags))
				assert.False(t, got.IsPublished)
			})
		}
	})

	t.Run("update & delete", func(t *testing.T) {
		tests := []httpTest{
			{name: "publish", method: http.MethodPut, path: hidden.ID, body: []byte(`{"is_published":true}`), wantCode: http.StatusOK},
			{name: "bad type", method: http.MethodPut, path: hidden.ID, body: []byte(`{"type":"party"}`), wantCode: http.StatusBadRequest},
			{name: "retrieve", path: hidden.ID, wantCode: http.StatusOK},
			{name: "delete", method: http.MethodDelete, path: hidden.ID, wantCode: http.StatusNoContent},
			{name: "deleted", path: hidden.ID, wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path, tt.token = "/v1/admin/events/"+tt.path, token
				check(t, tt, app.serve(tt))
			})
		}
	})
}

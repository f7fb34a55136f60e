package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/crec/backoffice/apps/api/echo"
	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/user"
)

func Test_emailTemplateApi_read(t *testing.T) {
	app := setup(t)
	token := app.token(t, app.staff(t, "maker", user.RoleStaffFabLab))

	t.Run("permissions", func(t *testing.T) {
		tests := []httpTest{
			{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "non staff", token: app.token(t, app.staff(t, "nobody")), wantCode: http.StatusForbidden},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/v1/admin/email-templates"
				check(t, tt, app.serve(tt))
			})
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := app.serve(httpTest{path: "/v1/admin/email-templates", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var got []core.EmailTemplate
		decode(t, rec, &got)
		names := make([]string, 0, len(got))
		for _, tmpl := range got {
			names = append(names, tmpl.Name)
		}
		assert.Contains(t, names, "password_reset")
		assert.Contains(t, names, "reservation_received")
		assert.Contains(t, names, "inscription_approved")
		assert.IsIncreasing(t, names)
	})

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "ok", path: "password_reset", wantCode: http.StatusOK},
			{name: "unknown", path: "welcome", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "email template not found"})},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path, tt.token = "/v1/admin/email-templates/"+tt.path, token
				rec := app.serve(tt)
				check(t, tt, rec)
				if rec.Code != http.StatusOK {
					return
				}
				var got core.EmailTemplate
				decode(t, rec, &got)
				assert.Equal(t, "password_reset", got.Name)
				assert.Equal(t, []string{"name", "reset_url"}, got.Variables)
				assert.Contains(t, got.Text, "{{reset_url}}")
				assert.NotEmpty(t, got.HTML)
			})
		}
	})
}

func Test_emailTemplateApi_preview(t *testing.T) {
	app := setup(t)
	token := app.token(t, app.staff(t, "events", user.RoleStaffEvents))

	tests := []httpTest{
		{name: "unknown", path: "welcome", body: []byte(`{}`), wantCode: http.StatusNotFound},
		{
			name:     "missing variable",
			path:     "password_reset",
			body:     []byte(`{"data":{"reset_url":"http://crec.test/reset"}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"data":"text: missing template variable \"name\""}`),
		},
		{
			name:     "ok",
			path:     "password_reset",
			body:     []byte(`{"data":{"name":"<Awa>","reset_url":"http://crec.test/reset"}}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path, tt.token = http.MethodPost, "/v1/admin/email-templates/"+tt.path+"/preview", token
			rec := app.serve(tt)
			check(t, tt, rec)
			if tt.wantData != nil || rec.Code != http.StatusOK {
				return
			}
			var got core.RenderedEmail
			decode(t, rec, &got)
			assert.NotEmpty(t, got.Subject)
			assert.Contains(t, got.Text, "Bonjour <Awa>,")
			assert.Contains(t, got.Text, "http://crec.test/reset")
			assert.Contains(t, got.Text, "CREC")
			assert.Contains(t, got.HTML, "&lt;Awa&gt;")
			assert.False(t, strings.Contains(got.HTML, "<Awa>"))
		})
	}
}

func Test_emailTemplateApi_sendTest(t *testing.T) {
	app := setup(t)
	token := app.token(t, app.staff(t, "trainer", user.RoleStaffTraining))

	tests := []struct {
		httpTest
		wantMail bool
	}{
		{httpTest: httpTest{
			name:     "email required",
			body:     []byte(`{"data":{"name":"Awa","reset_url":"http://crec.test/reset"}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required"}`),
		}},
		{httpTest: httpTest{
			name:     "invalid email",
			body:     []byte(`{"email":"awa","data":{"name":"Awa","reset_url":"http://crec.test/reset"}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"email must be a valid email address"}`),
		}},
		{httpTest: httpTest{
			name:     "missing variable",
			body:     []byte(`{"email":"awa@mail.test","data":{"name":"Awa"}}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"data":"text: missing template variable \"reset_url\""}`),
		}},
		{
			httpTest: httpTest{
				name:     "ok",
				body:     []byte(`{"email":" Awa@Mail.test ","data":{"name":"Awa","reset_url":"http://crec.test/reset"}}`),
				wantCode: http.StatusOK,
				wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Test email sent to awa@mail.test."}),
			},
			wantMail: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.mailSvc.Reset()
			tt.method, tt.path, tt.token = http.MethodPost, "/v1/admin/email-templates/password_reset/test", token
			check(t, tt.httpTest, app.serve(tt.httpTest))

			msg, ok := app.mailSvc.Last()
			require.Equal(t, tt.wantMail, ok)
			if !ok {
				return
			}
			assert.Equal(t, "password_reset", msg.TemplateName)
			assert.Equal(t, "awa@mail.test", msg.To[0].Address)
			assert.Equal(t, "Awa", msg.TemplateData["name"])
		})
	}
}

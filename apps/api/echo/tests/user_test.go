package tests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/crec/backoffice/apps/api/echo"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/tests"
)

const strongPwd = "Cr3c!Fablab#2024"

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Awa Diallo", "awa", "awa@crec.test", strongPwd, []string{user.RoleStaff}, true)
	testutil.CreateUser(t, app.usrRepo, "Old Timer", "oldie", "oldie@crec.test", strongPwd, []string{user.RoleStaff}, false)

	tests := []httpTest{
		{
			name:     "required fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "nobody", Password: strongPwd}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "awa", Password: "wrong"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "oldie", Password: strongPwd}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "with username",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "AWA ", Password: strongPwd}),
			wantCode: http.StatusOK,
		},
		{
			name:     "with email",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "awa@crec.test", Password: strongPwd}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/login"
			rec := app.serve(tt)
			check(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}

	t.Run("sets last login", func(t *testing.T) {
		usr, err := app.usrRepo.GetUser(app.ctx(), user.GetFilter{Username: "awa"})
		require.NoError(t, err)
		assert.NotNil(t, usr.LastLogin)
	})
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	now := time.Now().UTC()
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@crec.test", "", []string{user.RoleAdmin}, true, now.Add(-4*time.Hour))
	trainer := testutil.CreateUser(t, app.usrRepo, "Moussa Traore", "moussa", "moussa@crec.test", "", []string{user.RoleStaffTraining}, true, now.Add(-3*time.Hour))
	maker := testutil.CreateUser(t, app.usrRepo, "Fatou Sow", "fatou", "fatou@crec.test", "", []string{user.RoleStaffFabLab}, false, now.Add(-2*time.Hour))
	staff := testutil.CreateUser(t, app.usrRepo, "Ibrahim Kone", "ibrahim", "ibrahim@crec.test", "", []string{user.RoleStaff}, true, now.Add(-time.Hour))

	adminToken := app.token(t, admin)
	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff is not allowed", token: app.token(t, staff), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "all, newest first", wantIDs: []string{staff.ID, maker.ID, trainer.ID, admin.ID}},
		{name: "ordered by name", path: "?ordering=name", wantIDs: []string{admin.ID, maker.ID, staff.ID, trainer.ID}},
		{name: "search", path: "?search=sow", wantIDs: []string{maker.ID}},
		{name: "role prefix", path: "?role=staff:", wantIDs: []string{staff.ID, maker.ID, trainer.ID}},
		{name: "many roles", path: "?role=admin:&role=staff:training", wantIDs: []string{trainer.ID, admin.ID}},
		{name: "inactive", path: "?is_active=false", wantIDs: []string{maker.ID}},
		{name: "created range", path: "?created_from=" + url.QueryEscape(now.Add(-150*time.Minute).Format(time.RFC3339)), wantIDs: []string{staff.ID, maker.ID}},
		{name: "bad bool is ignored", path: "?is_active=maybe", wantIDs: []string{staff.ID, maker.ID, trainer.ID, admin.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.token == "" && tt.wantCode == 0 {
				tt.token = adminToken
			}
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			tt.path = "/v1/users" + tt.path
			check(t, tt, app.serve(tt))
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	owner := app.staff(t, "owner", user.RoleAdminOwner)
	admin := app.staff(t, "admin", user.RoleAdmin)
	app.staff(t, "taken", user.RoleStaff)

	tests := []httpTest{
		{
			name:     "staff cannot register users",
			token:    app.token(t, app.staff(t, "staffer", user.RoleStaff)),
			body:     marchallObj(t, user.NewUser{Name: "New", Username: "newbie", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "username or email",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "New", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"one of username or email is required","email":"one of username or email is required"}`),
		},
		{
			name:     "weak password",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "New", Username: "newbie", Password: "password", PasswordConfirm: "password"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}`),
		},
		{
			name:     "unknown role",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "New", Username: "newbie", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{"staff:kitchen"}}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles":"invalid roles"}`),
		},
		{
			name:     "username exists",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "New", Username: "taken", Password: strongPwd, PasswordConfirm: strongPwd}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"a user with this username already exists"}`),
		},
		{
			name:     "admin cannot grant owner",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "New", Username: "newbie", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleAdminOwner}}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles":"not enough rights to set these roles"}`),
		},
		{
			name:     "owner grants owner",
			token:    app.token(t, owner),
			body:     marchallObj(t, user.NewUser{Name: "New Owner", Username: "newowner", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleAdminOwner}}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "staff member",
			token:    app.token(t, admin),
			body:     marchallObj(t, user.NewUser{Name: "Trainer", Email: "Trainer@CREC.test", Password: strongPwd, PasswordConfirm: strongPwd, Roles: []string{user.RoleStaffTraining}}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/register"
			rec := app.serve(tt)
			check(t, tt, rec)
			if tt.wantCode == http.StatusCreated {
				var got user.User
				decode(t, rec, &got)
				assert.NotEmpty(t, got.ID)
				assert.True(t, got.IsActive)
			}
		})
	}

	t.Run("email is lowercased", func(t *testing.T) {
		_, err := app.usrRepo.GetUser(app.ctx(), user.GetFilter{Email: "trainer@crec.test"})
		assert.NoError(t, err)
	})
}

func Test_userApi_detail(t *testing.T) {
	app := setup(t)
	owner := app.staff(t, "owner", user.RoleAdminOwner)
	admin := app.staff(t, "admin", user.RoleAdmin)
	staff := app.staff(t, "staffer", user.RoleStaff)
	other := app.staff(t, "other", user.RoleStaffEvents)

	t.Run("retrieve", func(t *testing.T) {
		tests := []httpTest{
			{name: "self", path: staff.ID, token: app.token(t, staff), wantCode: http.StatusOK},
			{name: "someone else", path: other.ID, token: app.token(t, staff), wantCode: http.StatusNotFound},
			{name: "admin", path: other.ID, token: app.token(t, admin), wantCode: http.StatusOK},
			{name: "unknown id", path: "abc", token: app.token(t, admin), wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.path = "/v1/users/" + tt.path
				check(t, tt, app.serve(tt))
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "self name",
				path:     staff.ID,
				token:    app.token(t, staff),
				body:     []byte(`{"name":"Ibrahim"}`),
				wantCode: http.StatusOK,
			},
			{
				name:     "self roles",
				path:     staff.ID,
				token:    app.token(t, staff),
				body:     []byte(`{"roles":["admin:"]}`),
				wantCode: http.StatusForbidden,
			},
			{
				name:     "password confirmation",
				path:     staff.ID,
				token:    app.token(t, staff),
				body:     marchallObj(t, user.UpdateUser{Password: strongPwd, PasswordConfirm: "nope"}),
				wantCode: http.StatusBadRequest,
			},
			{
				name:     "admin deactivates",
				path:     other.ID,
				token:    app.token(t, admin),
				body:     []byte(`{"is_active":false}`),
				wantCode: http.StatusOK,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method, tt.path = http.MethodPut, "/v1/users/"+tt.path
				check(t, tt, app.serve(tt))
			})
		}

		usr, err := app.usrRepo.GetUser(app.ctx(), user.GetFilter{ID: staff.ID})
		require.NoError(t, err)
		assert.Equal(t, "Ibrahim", usr.Name)
		assert.Equal(t, []string{user.RoleStaff}, []string(usr.Roles))

		usr, err = app.usrRepo.GetUser(app.ctx(), user.GetFilter{ID: other.ID})
		require.NoError(t, err)
		assert.False(t, usr.IsActive)
	})

	t.Run("delete", func(t *testing.T) {
		tests := []httpTest{
			{name: "staff", path: other.ID, token: app.token(t, staff), wantCode: http.StatusNotFound},
			{name: "self", path: admin.ID, token: app.token(t, admin), wantCode: http.StatusForbidden},
			{
				name:     "higher ranked user",
				path:     owner.ID,
				token:    app.token(t, admin),
				wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "not enough rights to delete this user"}),
			},
			{name: "ok", path: other.ID, token: app.token(t, admin), wantCode: http.StatusNoContent},
			{name: "already deleted", path: other.ID, token: app.token(t, admin), wantCode: http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method, tt.path = http.MethodDelete, "/v1/users/"+tt.path
				check(t, tt, app.serve(tt))
			})
		}
	})
}

func Test_userApi_destroyMultiple(t *testing.T) {
	app := setup(t)
	owner := app.staff(t, "owner", user.RoleAdminOwner)
	admin := app.staff(t, "admin", user.RoleAdmin)
	s1 := app.staff(t, "staff1", user.RoleStaff)
	s2 := app.staff(t, "staff2", user.RoleStaffFabLab)

	tests := []httpTest{
		{name: "no ids", token: app.token(t, admin), wantCode: http.StatusNoContent},
		{name: "including self", path: "?id=" + s1.ID + "&id=" + admin.ID, token: app.token(t, admin), wantCode: http.StatusForbidden},
		{name: "including a higher ranked user", path: "?id=" + s1.ID + "&id=" + owner.ID, token: app.token(t, admin), wantCode: http.StatusForbidden},
		{name: "ok", path: "?id=" + s1.ID + "&id=" + s2.ID + "&id=unknown", token: app.token(t, admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodDelete, "/v1/users"+tt.path
			check(t, tt, app.serve(tt))
		})
	}

	users, err := app.usrRepo.QueryUsers(app.ctx(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)
	tt := httpTest{
		path:     "/v1/users/roles",
		token:    app.token(t, app.staff(t, "admin", user.RoleAdmin)),
		wantCode: http.StatusOK,
		wantData: marchallObj(t, user.Roles),
	}
	check(t, tt, app.serve(tt))
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	active := app.staff(t, "active", user.RoleStaff)
	inactive := testutil.CreateUser(t, app.usrRepo, "Inactive", "inactive", "", "", []string{user.RoleStaff}, false)

	expired := echoapi.GetUserClaims(active, app.conf, time.Now().Add(-app.conf.JWTRefreshExpirationDelta-time.Minute).Unix())
	expiredToken, err := echoapi.GenerateToken(expired, app.conf.SecretKey)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "inactive user", token: app.token(t, inactive), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "refresh expired", token: expiredToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "ok", token: app.token(t, active), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/token-refresh"
			rec := app.serve(tt)
			check(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)
	usr := app.staff(t, "awa", user.RoleStaff)
	testutil.CreateUser(t, app.usrRepo, "Inactive", "inactive", "inactive@crec.test", "", nil, false)

	success := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})
	tests := []struct {
		httpTest
		wantMails int
	}{
		{httpTest{name: "required", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"email":"this field is required"}`)}, 0},
		{httpTest{name: "invalid email", body: []byte(`{"email":"awa"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"email":"email must be a valid email address"}`)}, 0},
		{httpTest{name: "unknown email", body: []byte(`{"email":"nobody@crec.test"}`), wantCode: http.StatusOK, wantData: success}, 0},
		{httpTest{name: "inactive user", body: []byte(`{"email":"inactive@crec.test"}`), wantCode: http.StatusOK, wantData: success}, 0},
		{httpTest{name: "ok", body: []byte(`{"email":" AWA@crec.test"}`), wantCode: http.StatusOK, wantData: success}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.mailSvc.Reset()
			tt.method, tt.path = http.MethodPost, "/v1/users/password-reset"
			check(t, tt.httpTest, app.serve(tt.httpTest))

			sent := app.mailSvc.Sent()
			require.Len(t, sent, tt.wantMails)
			if tt.wantMails > 0 {
				assert.Equal(t, usr.Email, sent[0].To[0].Address)
				assert.True(t, strings.Contains(sent[0].TextContent, "/admin/password-reset?uid="), sent[0].TextContent)
			}
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	app := setup(t)
	usr := app.staff(t, "awa", user.RoleStaff)

	// request a reset and pick the link out of the email
	rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/users/password-reset", body: []byte(`{"email":"awa@crec.test"}`)})
	require.Equal(t, http.StatusOK, rec.Code)
	msg, ok := app.mailSvc.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.TemplateData["reset_url"])
	require.NoError(t, err)
	uid, token := link.Query().Get("uid"), link.Query().Get("token")
	require.NotEmpty(t, uid)
	require.NotEmpty(t, token)

	const newPwd = "N3w!Passw0rd-Crec"
	tests := []httpTest{
		{
			name:     "required fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"token":"this field is required","uid":"this field is required","password":"this field is required","password_confirm":"this field is required"}`),
		},
		{
			name:     "bad uid",
			body:     marchallObj(t, user.ResetUserPassword{UID: "bad", Token: token, Password: newPwd, PasswordConfirm: newPwd}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name:     "bad token",
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: "abc-123", Password: newPwd, PasswordConfirm: newPwd}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"token":"invalid token"}`),
		},
		{
			name:     "weak password",
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: "12345678", PasswordConfirm: "12345678"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		},
		{
			name:     "ok",
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
		{
			name:     "token cannot be reused",
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"token":"invalid token"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/password-reset-confirm"
			check(t, tt, app.serve(tt))
		})
	}

	got, err := app.usrRepo.GetUser(app.ctx(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))
}

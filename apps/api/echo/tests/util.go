package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/crec/backoffice/apps/api/echo"
	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/content"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/services/email"
	"github.com/crec/backoffice/services/logger"
	"github.com/crec/backoffice/storage/database"
	"github.com/crec/backoffice/storage/database/sqlxrepos"
	"github.com/crec/backoffice/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// testApp is the API server wired to a fresh database.
type testApp struct {
	echoapi.Server
	db           *database.DB
	conf         *core.Config
	mailSvc      *emailsvc.ConsoleServiceMock
	usrRepo      user.Repository
	formations   formation.Repository
	events       event.Repository
	fablab       fablab.Repository
	inscriptions inscription.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	app := &testApp{
		db:           db,
		conf:         conf,
		mailSvc:      emailsvc.NewConsoleServiceMock(conf),
		usrRepo:      sqlxrepos.NewUserRepository(db),
		formations:   sqlxrepos.NewFormationRepository(db),
		events:       sqlxrepos.NewEventRepository(db),
		fablab:       sqlxrepos.NewFabLabRepository(db),
		inscriptions: sqlxrepos.NewInscriptionRepository(db),
	}

	// set up services
	validate, translator := testutil.NewTranslatedValidator()
	std := logrus.New()
	std.SetOutput(ioutil.Discard)
	logger := logsvc.NewRollbarLogger(std, conf)

	formationSvc := formation.NewService(app.formations, validate)
	eventSvc := event.NewService(app.events, validate)
	fablabSvc := fablab.NewService(app.fablab, db, app.mailSvc, conf, validate)

	// set up server
	app.Server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		MailSvc:        app.mailSvc,
		UserSvc:        user.NewService(app.usrRepo, app.mailSvc, conf),
		FormationSvc:   formationSvc,
		EventSvc:       eventSvc,
		FabLabSvc:      fablabSvc,
		InscriptionSvc: inscription.NewService(app.inscriptions, db, app.mailSvc, formationSvc, eventSvc, fablabSvc, validate),
		ContactSvc:     content.NewContactService(app.mailSvc, conf, validate),
		DisableReqLogs: true,
	})
	return app
}

// serve runs a request against the app.
func (app *testApp) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) ctx() context.Context {
	return context.Background()
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, app.conf), app.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

// staff creates an active user holding `roles`.
func (app *testApp) staff(t *testing.T, uname string, roles ...string) user.User {
	t.Helper()
	return testutil.CreateUser(t, app.usrRepo, uname, uname, uname+"@crec.test", "", roles, true)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	wantIDs  []string
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// checkCodeAndIDs compares the IDs of a JSON list response, in order.
func checkCodeAndIDs(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	var list []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	got := make([]string, 0, len(list))
	for _, item := range list {
		got = append(got, item.ID)
	}
	want := tt.wantIDs
	if want == nil {
		want = []string{}
	}
	assert.Equal(t, want, got)
}

// check dispatches to checkCodeAndIDs, checkCodeAndData or a bare status check.
func check(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	switch {
	case tt.wantIDs != nil:
		checkCodeAndIDs(t, tt, rec)
	case tt.wantData != nil:
		checkCodeAndData(t, tt, rec)
	default:
		assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

package inscription_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/services/email"
	"github.com/crec/backoffice/storage/database/sqlxrepos"
	"github.com/crec/backoffice/tests"
)

type fixture struct {
	svc        *inscription.Service
	repo       inscription.Repository
	mailSvc    *emailsvc.ConsoleServiceMock
	formations formation.Repository
	events     event.Repository
	fablab     fablab.Repository
}

func setUp(t *testing.T) fixture {
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	validate := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	fx := fixture{
		repo:       sqlxrepos.NewInscriptionRepository(db),
		mailSvc:    mailSvc,
		formations: sqlxrepos.NewFormationRepository(db),
		events:     sqlxrepos.NewEventRepository(db),
		fablab:     sqlxrepos.NewFabLabRepository(db),
	}
	fx.svc = inscription.NewService(
		fx.repo,
		db,
		mailSvc,
		formation.NewService(fx.formations, validate),
		event.NewService(fx.events, validate),
		fablab.NewService(fx.fablab, db, mailSvc, conf, validate),
		validate,
	)
	return fx
}

func application(kind, targetID, email string) inscription.NewInscription {
	return inscription.NewInscription{
		Kind:       kind,
		TargetID:   targetID,
		FirstName:  "Awa",
		LastName:   "Dossou",
		Email:      email,
		Motivation: "Je veux apprendre.",
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	verr, ok := err.(*core.ValidationError)
	require.Truef(t, ok, "want *core.ValidationError, got %T: %v", err, err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Submit(t *testing.T) {
	fx := setUp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	published := testutil.CreateFormation(t, fx.formations, "Impression 3D", formation.StatusPublished, 2)
	draft := testutil.CreateFormation(t, fx.formations, "Brouillon", formation.StatusDraft, 0)
	openEvent := testutil.CreateEvent(t, fx.events, "Hackathon", now.Add(72*time.Hour), true, true, 0)
	closedEvent := testutil.CreateEvent(t, fx.events, "Conférence", now.Add(72*time.Hour), true, false, 0)
	pastEvent := testutil.CreateEvent(t, fx.events, "Atelier passé", now.Add(-72*time.Hour), true, true, 0)
	plan := testutil.CreatePlan(t, fx.fablab, "Particulier", 20, true)
	oldPlan := testutil.CreatePlan(t, fx.fablab, "Ancienne formule", 20, false)

	ins, err := fx.svc.Submit(ctx, application(" Formation ", published.ID, " Awa@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, inscription.KindFormation, ins.Kind)
	assert.Equal(t, inscription.StatusPending, ins.Status)
	assert.Equal(t, "awa@example.com", ins.Email)
	assert.Equal(t, "Awa Dossou", ins.FullName())
	assert.Nil(t, ins.ReviewedAt)

	msg, ok := fx.mailSvc.Last()
	require.True(t, ok)
	assert.Equal(t, "inscription_received", msg.TemplateName)
	assert.Equal(t, "Impression 3D", msg.TemplateData["target"])
	assert.Contains(t, msg.Subject, "Impression 3D")

	tests := []struct {
		name      string
		req       inscription.NewInscription
		wantField string
	}{
		{name: "event", req: application(inscription.KindEvent, openEvent.ID, "awa@example.com")},
		{name: "fablab plan", req: application(inscription.KindFabLab, plan.ID, "awa@example.com")},
		{name: "same person, same formation", req: application(inscription.KindFormation, published.ID, "AWA@example.com"), wantField: "email"},
		{name: "draft formation", req: application(inscription.KindFormation, draft.ID, "awa@example.com"), wantField: "target_id"},
		{name: "registrations closed", req: application(inscription.KindEvent, closedEvent.ID, "awa@example.com"), wantField: "target_id"},
		{name: "event over", req: application(inscription.KindEvent, pastEvent.ID, "awa@example.com"), wantField: "target_id"},
		{name: "inactive plan", req: application(inscription.KindFabLab, oldPlan.ID, "awa@example.com"), wantField: "target_id"},
		{name: "unknown target", req: application(inscription.KindFormation, openEvent.ID, "awa@example.com"), wantField: "target_id"},
		{name: "malformed target", req: application(inscription.KindEvent, "42", "awa@example.com"), wantField: "target_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.Submit(ctx, tt.req)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantField, fieldOf(t, err))
		})
	}

	t.Run("invalid kind", func(t *testing.T) {
		_, err := fx.svc.Submit(ctx, application("concert", published.ID, "awa@example.com"))
		assert.Error(t, err)
	})

	t.Run("rejected applicants may apply again", func(t *testing.T) {
		_, err := fx.svc.Review(ctx, ins.ID, "", inscription.Review{Status: inscription.StatusRejected})
		require.NoError(t, err)
		_, err = fx.svc.Submit(ctx, application(inscription.KindFormation, published.ID, "awa@example.com"))
		assert.NoError(t, err)
	})
}

func TestService_Review(t *testing.T) {
	fx := setUp(t)
	ctx := context.Background()
	reviewer := "5d1c8f4e-6a0b-4c1e-9a57-0d6a1f3b2c11"

	f := testutil.CreateFormation(t, fx.formations, "Électronique", formation.StatusPublished, 2)
	submit := func(email string) inscription.Inscription {
		ins, err := fx.svc.Submit(ctx, application(inscription.KindFormation, f.ID, email))
		require.NoError(t, err)
		return ins
	}
	first, second, third := submit("a@example.com"), submit("b@example.com"), submit("c@example.com")

	got, err := fx.svc.Review(ctx, first.ID, reviewer, inscription.Review{Status: inscription.StatusApproved, Note: " Bienvenue ! "})
	require.NoError(t, err)
	assert.Equal(t, inscription.StatusApproved, got.Status)
	assert.Equal(t, "Bienvenue !", got.ReviewNote)
	assert.Equal(t, reviewer, got.ReviewedBy)
	require.NotNil(t, got.ReviewedAt)

	msg, _ := fx.mailSvc.Last()
	assert.Equal(t, "inscription_approved", msg.TemplateName)
	assert.Equal(t, "a@example.com", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "Bienvenue !")

	// approved is final
	_, err = fx.svc.Review(ctx, first.ID, reviewer, inscription.Review{Status: inscription.StatusRejected})
	assert.Equal(t, "status", fieldOf(t, err))

	_, err = fx.svc.Review(ctx, second.ID, reviewer, inscription.Review{Status: inscription.StatusWaitlisted})
	require.NoError(t, err)
	_, err = fx.svc.Review(ctx, second.ID, reviewer, inscription.Review{Status: inscription.StatusApproved})
	require.NoError(t, err)

	// capacity of 2 reached
	_, err = fx.svc.Review(ctx, third.ID, reviewer, inscription.Review{Status: inscription.StatusApproved})
	assert.Equal(t, "status", fieldOf(t, err))
	got, err = fx.svc.Review(ctx, third.ID, reviewer, inscription.Review{Status: inscription.StatusWaitlisted})
	require.NoError(t, err)
	assert.Equal(t, inscription.StatusWaitlisted, got.Status)

	_, err = fx.svc.Review(ctx, third.ID, reviewer, inscription.Review{Status: inscription.StatusPending})
	assert.Error(t, err)

	_, err = fx.svc.Review(ctx, "5d1c8f4e-0000-4c1e-9a57-0d6a1f3b2c11", reviewer, inscription.Review{Status: inscription.StatusApproved})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Review_concurrentApprovals(t *testing.T) {
	fx := setUp(t)
	ctx := context.Background()
	reviewer := "5d1c8f4e-6a0b-4c1e-9a57-0d6a1f3b2c11"
	f := testutil.CreateFormation(t, fx.formations, "Soudure", formation.StatusPublished, 1)

	pending := make([]inscription.Inscription, 0, 5)
	for i := 0; i < 5; i++ {
		ins, err := fx.svc.Submit(ctx, application(inscription.KindFormation, f.ID, fmt.Sprintf("maker%d@example.com", i)))
		require.NoError(t, err)
		pending = append(pending, ins)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for _, ins := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := fx.svc.Review(ctx, id, reviewer, inscription.Review{Status: inscription.StatusApproved}); err == nil {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}(ins.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	n, err := fx.repo.CountInscriptions(ctx, &inscription.QueryFilter{TargetID: f.ID, Statuses: []string{inscription.StatusApproved}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Run("locking needs a transaction", func(t *testing.T) {
		assert.Error(t, fx.repo.LockTarget(ctx, inscription.KindFormation, f.ID))
		assert.Error(t, fx.repo.LockTarget(ctx, "kitchen", f.ID))
	})
}

func TestService_QueryAndDashboard(t *testing.T) {
	fx := setUp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	f := testutil.CreateFormation(t, fx.formations, "Électronique", formation.StatusPublished, 0)
	testutil.CreateFormation(t, fx.formations, "Brouillon", formation.StatusDraft, 0)
	e := testutil.CreateEvent(t, fx.events, "Hackathon", now.Add(72*time.Hour), true, true, 0)
	plan := testutil.CreatePlan(t, fx.fablab, "Particulier", 20, true)
	offering := testutil.CreateOffering(t, fx.fablab, "Imprimante 3D", true, true)
	testutil.CreateReservation(t, fx.fablab, offering, plan, "awa@example.com", now.Add(24*time.Hour), 2, fablab.StatusPending)

	i1, err := fx.svc.Submit(ctx, application(inscription.KindFormation, f.ID, "awa@example.com"))
	require.NoError(t, err)
	i2, err := fx.svc.Submit(ctx, application(inscription.KindEvent, e.ID, "kofi@example.com"))
	require.NoError(t, err)
	ni := application(inscription.KindEvent, e.ID, "ines@example.com")
	ni.Organization = "Université d'Abomey-Calavi"
	i3, err := fx.svc.Submit(ctx, ni)
	require.NoError(t, err)
	_, err = fx.svc.Review(ctx, i3.ID, "", inscription.Review{Status: inscription.StatusRejected})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter *inscription.QueryFilter
		want   []inscription.Inscription
	}{
		{name: "kind", filter: &inscription.QueryFilter{Kind: "event"}, want: []inscription.Inscription{i3, i2}},
		{name: "target", filter: &inscription.QueryFilter{TargetID: f.ID}, want: []inscription.Inscription{i1}},
		{name: "statuses", filter: &inscription.QueryFilter{Statuses: []string{inscription.StatusPending}}, want: []inscription.Inscription{i2, i1}},
		{name: "search", filter: &inscription.QueryFilter{Search: "abomey"}, want: []inscription.Inscription{i3}},
		{name: "email", filter: &inscription.QueryFilter{Email: "KOFI@example.com"}, want: []inscription.Inscription{i2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.svc.Query(ctx, tt.filter, []core.DBOrdering{{Field: "created_at"}, {Field: "email"}})
			require.NoError(t, err)
			assert.ElementsMatch(t, ids(tt.want), ids(got))
		})
	}

	d, err := fx.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		inscription.StatusPending:    2,
		inscription.StatusApproved:   0,
		inscription.StatusRejected:   1,
		inscription.StatusWaitlisted: 0,
	}, d.Inscriptions)
	assert.Equal(t, 1, d.PendingReservations)
	assert.Equal(t, 1, d.PublishedFormations)
	assert.Equal(t, 1, d.UpcomingEvents)

	require.NoError(t, fx.svc.Delete(ctx, i1.ID))
	_, err = fx.svc.Get(ctx, i1.ID)
	assert.True(t, core.IsNotFound(err))
}

func ids(list []inscription.Inscription) []string {
	res := make([]string, 0, len(list))
	for _, i := range list {
		res = append(res, i.ID)
	}
	return res
}

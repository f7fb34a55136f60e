package formation_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/storage/database/sqlxrepos"
	"github.com/crec/backoffice/tests"
)

func newService(t *testing.T) (*formation.Service, formation.Repository) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewFormationRepository(db)
	return formation.NewService(repo, testutil.NewValidator()), repo
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	verr, ok := err.(*core.ValidationError)
	require.Truef(t, ok, "want *core.ValidationError, got %T: %v", err, err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	start := time.Date(2030, time.March, 2, 8, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	f, err := svc.Create(ctx, formation.NewFormation{
		Title:         "  Impression 3D : les bases ",
		Level:         formation.LevelBeginner,
		Price:         decimal.RequireFromString("150.50"),
		StartDate:     &start,
		EndDate:       &end,
		Objectives:    []string{" Modéliser ", ""},
		Modules:       []string{"Slicer"},
		Prerequisites: nil,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "Impression 3D : les bases", f.Title)
	assert.Equal(t, "impression-3d-les-bases", f.Slug)
	assert.Equal(t, formation.StatusDraft, f.Status)
	assert.True(t, f.Price.Equal(decimal.RequireFromString("150.5")))
	assert.Equal(t, core.StringList{"Modéliser"}, f.Objectives)
	assert.Equal(t, core.StringList{}, f.Prerequisites)
	require.NotNil(t, f.StartDate)
	assert.True(t, f.StartDate.Equal(start))

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := svc.Create(ctx, formation.NewFormation{Title: "Impression 3D: les bases", Level: formation.LevelBeginner})
		require.Error(t, err)
		assert.Equal(t, "slug", fieldOf(t, err))
	})

	t.Run("negative price", func(t *testing.T) {
		_, err := svc.Create(ctx, formation.NewFormation{Title: "Découpe", Level: formation.LevelBeginner, Price: decimal.NewFromInt(-1)})
		require.Error(t, err)
		assert.Equal(t, "price", fieldOf(t, err))
	})

	t.Run("ends before start", func(t *testing.T) {
		before := start.Add(-time.Hour)
		_, err := svc.Create(ctx, formation.NewFormation{Title: "Découpe", Level: formation.LevelBeginner, StartDate: &start, EndDate: &before})
		require.Error(t, err)
		assert.Equal(t, "end_date", fieldOf(t, err))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := svc.Create(ctx, formation.NewFormation{Title: "Découpe", Level: "expert"})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "level", verrs[0].Field())
	})
}

func TestService_Query(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	f1 := testutil.CreateFormation(t, repo, "Electronique", formation.StatusPublished, 10, func(f *formation.Formation) {
		f.Category = "Fabrication"
		f.Level = formation.LevelIntermediate
		f.StartDate = timePtr(time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC))
	})
	f2 := testutil.CreateFormation(t, repo, "Impression 3D", formation.StatusPublished, 0, func(f *formation.Formation) {
		f.Category = "Fabrication"
		f.StartDate = timePtr(time.Date(2030, 4, 1, 8, 0, 0, 0, time.UTC))
	})
	f3 := testutil.CreateFormation(t, repo, "Gestion culturelle", formation.StatusDraft, 0, func(f *formation.Formation) {
		f.Summary = "monter un projet d'impression"
	})

	tests := []struct {
		name     string
		filter   *formation.QueryFilter
		ordering []core.DBOrdering
		want     []formation.Formation
	}{
		{name: "all, ordered by title", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []formation.Formation{f1, f3, f2}},
		{name: "search", filter: &formation.QueryFilter{Search: "IMPRESSION"}, ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []formation.Formation{f3, f2}},
		{name: "status", filter: &formation.QueryFilter{Status: "draft"}, want: []formation.Formation{f3}},
		{name: "level", filter: &formation.QueryFilter{Level: " Intermediate "}, want: []formation.Formation{f1}},
		{name: "category & unknown ordering", filter: &formation.QueryFilter{Category: "Fabrication"}, ordering: []core.DBOrdering{{Field: "password"}, {Field: "start_date", Ascending: true}}, want: []formation.Formation{f2, f1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, ids(tt.want), ids(got))
		})
	}

	t.Run("published", func(t *testing.T) {
		got, err := svc.Published(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{f2.ID}, ids(got))

		n, err := svc.CountPublished(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestService_GetUpdateDelete(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	f1 := testutil.CreateFormation(t, repo, "Électronique", formation.StatusDraft, 10)
	f2 := testutil.CreateFormation(t, repo, "Impression 3D", formation.StatusDraft, 0)

	got, err := svc.GetBySlug(ctx, " Electronique ")
	require.NoError(t, err)
	assert.Equal(t, f1.ID, got.ID)

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.True(t, core.IsNotFound(err))

	upd, err := svc.Update(ctx, f1.ID, formation.UpdateFormation{
		Status:  core.StringPtr(formation.StatusPublished),
		Modules: []string{"Soudure", "Arduino"},
	})
	require.NoError(t, err)
	assert.Equal(t, formation.StatusPublished, upd.Status)
	assert.Equal(t, "Électronique", upd.Title)
	assert.Equal(t, core.StringList{"Soudure", "Arduino"}, upd.Modules)
	assert.Equal(t, 10, upd.MaxParticipants)

	_, err = svc.Update(ctx, f1.ID, formation.UpdateFormation{Slug: core.StringPtr(f2.Slug)})
	require.Error(t, err)
	assert.Equal(t, "slug", fieldOf(t, err))

	// keeping its own slug is fine
	_, err = svc.Update(ctx, f1.ID, formation.UpdateFormation{Slug: core.StringPtr(f1.Slug)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, f1.ID, f2.ID))
	_, err = svc.Get(ctx, f1.ID)
	assert.True(t, core.IsNotFound(err))
}

func timePtr(t time.Time) *time.Time { return &t }

func ids(list []formation.Formation) []string {
	res := make([]string, 0, len(list))
	for _, f := range list {
		res = append(res, f.ID)
	}
	return res
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/user"
)

type formationApi struct {
	svc *formation.Service
}

func registerFormationAPI(public, admin *echo.Group, svc *formation.Service) {
	api := formationApi{svc: svc}

	pg := public.Group("/formations")
	pg.GET("", api.queryPublished)
	pg.GET("/:slug", api.retrievePublished)

	ag := admin.Group("/formations", staffMiddleware(user.RoleStaffTraining))
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *formationApi) queryPublished(ctx echo.Context) error {
	var params formationQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to formationQuery")
	}
	filter := params.filter()
	filter.Status = formation.StatusPublished

	list, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying formations")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *formationApi) retrievePublished(ctx echo.Context) error {
	f, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding formation by slug")
	}
	if !f.IsPublished() {
		return formation.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formationApi) query(ctx echo.Context) error {
	var params formationQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to formationQuery")
	}

	list, err := api.svc.Query(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying formations")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *formationApi) create(ctx echo.Context) error {
	var data formation.NewFormation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFormation")
	}
	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating formation")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *formationApi) retrieve(ctx echo.Context) error {
	f, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding formation")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formationApi) update(ctx echo.Context) error {
	var data formation.UpdateFormation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFormation")
	}
	f, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating formation")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *formationApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding formation")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting formation")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *formationApi) destroyMultiple(ctx echo.Context) error {
	var query idsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to idsQuery")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting formations")
	}
	return ctx.NoContent(http.StatusNoContent)
}

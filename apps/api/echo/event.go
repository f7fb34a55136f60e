package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/user"
)

type eventApi struct {
	svc *event.Service
}

func registerEventAPI(public, admin *echo.Group, svc *event.Service) {
	api := eventApi{svc: svc}

	pg := public.Group("/events")
	pg.GET("", api.queryPublished)
	pg.GET("/:id", api.retrievePublished)

	ag := admin.Group("/events", staffMiddleware(user.RoleStaffEvents))
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/types", api.queryTypes)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

func (api *eventApi) queryPublished(ctx echo.Context) error {
	var params eventQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to eventQuery")
	}
	filter := params.filter()
	filter.Published = core.BoolPtr(true)

	list, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *eventApi) retrievePublished(ctx echo.Context) error {
	e, err := api.svc.GetPublished(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, publicEvent{Event: e, AcceptsRegistrations: api.svc.AcceptsRegistrations(e)})
}

func (api *eventApi) query(ctx echo.Context) error {
	var params eventQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to eventQuery")
	}

	list, err := api.svc.Query(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *eventApi) queryTypes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, event.Types)
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	e, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) update(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	e, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding event")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) destroyMultiple(ctx echo.Context) error {
	var query idsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to idsQuery")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting events")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// publicEvent tells the site whether the registration form should be shown.
type publicEvent struct {
	event.Event
	AcceptsRegistrations bool `json:"accepts_registrations"`
}

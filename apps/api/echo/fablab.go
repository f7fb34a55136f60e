package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/user"
)

type fablabApi struct {
	svc *fablab.Service
}

func registerFabLabAPI(public, admin *echo.Group, svc *fablab.Service) {
	api := fablabApi{svc: svc}

	pg := public.Group("/fablab")
	pg.GET("/projects", api.queryProjects)
	pg.GET("/projects/:id", api.retrieveProject)
	pg.GET("/services", api.queryActiveOfferings)
	pg.GET("/services/:id/availability", api.availability)
	pg.GET("/pricing", api.queryActivePlans)
	pg.GET("/quota", api.quota)
	pg.POST("/reservations", api.reserve)

	ag := admin.Group("/fablab", staffMiddleware(user.RoleStaffFabLab))

	ag.GET("/projects", api.queryProjects)
	ag.POST("/projects", api.createProject)
	ag.GET("/projects/:id", api.retrieveProject)
	ag.PUT("/projects/:id", api.updateProject)
	ag.DELETE("/projects/:id", api.destroyProject)

	ag.GET("/services", api.queryOfferings)
	ag.POST("/services", api.createOffering)
	ag.GET("/services/:id", api.retrieveOffering)
	ag.PUT("/services/:id", api.updateOffering)
	ag.DELETE("/services/:id", api.destroyOffering)

	ag.GET("/pricing", api.queryPlans)
	ag.POST("/pricing", api.createPlan)
	ag.GET("/pricing/:id", api.retrievePlan)
	ag.PUT("/pricing/:id", api.updatePlan)
	ag.DELETE("/pricing/:id", api.destroyPlan)

	ag.GET("/reservations", api.queryReservations)
	ag.GET("/reservations/:id", api.retrieveReservation)
	ag.PUT("/reservations/:id", api.reviewReservation)
}

// ReservationResponse is the booking confirmation, with the member's updated quota.
type ReservationResponse struct {
	Reservation fablab.Reservation `json:"reservation"`
	Quota       fablab.Quota       `json:"quota"`
}

// Public handlers

func (api *fablabApi) queryActiveOfferings(ctx echo.Context) error {
	var params offeringQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to offeringQuery")
	}
	filter := params.filter()
	filter.Active = core.BoolPtr(true)

	list, err := api.svc.QueryOfferings(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying services")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) queryActivePlans(ctx echo.Context) error {
	var params planQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to planQuery")
	}
	filter := params.filter()
	filter.Active = core.BoolPtr(true)

	list, err := api.svc.QueryPlans(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying pricing plans")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) availability(ctx echo.Context) error {
	day := time.Now().UTC()
	if date := strings.TrimSpace(ctx.QueryParam("date")); date != "" {
		var err error
		if day, err = time.ParseInLocation("2006-01-02", date, time.UTC); err != nil {
			return core.NewFieldError("date", "must be a date formatted as YYYY-MM-DD")
		}
	}

	av, err := api.svc.Availability(ctx.Request().Context(), ctx.Param("id"), day)
	if err != nil {
		return errors.Wrap(err, "computing availability")
	}
	return ctx.JSON(http.StatusOK, av)
}

func (api *fablabApi) quota(ctx echo.Context) error {
	var params quotaQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to quotaQuery")
	}
	if strings.TrimSpace(params.PlanID) == "" {
		return core.NewFieldError("plan_id", "this field is required")
	}
	var month time.Time
	if params.Month != "" {
		var err error
		if month, err = fablab.ParseMonth(strings.TrimSpace(params.Month)); err != nil {
			return core.NewFieldError("month", "must be a month formatted as YYYY-MM")
		}
	}

	q, err := api.svc.MemberQuota(ctx.Request().Context(), params.Email, strings.TrimSpace(params.PlanID), month)
	if err != nil {
		return errors.Wrap(err, "computing quota")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *fablabApi) reserve(ctx echo.Context) error {
	var data fablab.NewReservation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReservation")
	}
	res, q, err := api.svc.Reserve(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "reserving")
	}
	return ctx.JSON(http.StatusCreated, ReservationResponse{Reservation: res, Quota: q})
}

// Projects

func (api *fablabApi) queryProjects(ctx echo.Context) error {
	var params projectQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to projectQuery")
	}
	list, err := api.svc.QueryProjects(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) createProject(ctx echo.Context) error {
	var data fablab.Project
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Project")
	}
	p, err := api.svc.CreateProject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *fablabApi) retrieveProject(ctx echo.Context) error {
	p, err := api.svc.GetProject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *fablabApi) updateProject(ctx echo.Context) error {
	var data fablab.UpdateProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProject")
	}
	p, err := api.svc.UpdateProject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *fablabApi) destroyProject(ctx echo.Context) error {
	if _, err := api.svc.GetProject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding project")
	}
	if err := api.svc.DeleteProjects(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Services

func (api *fablabApi) queryOfferings(ctx echo.Context) error {
	var params offeringQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to offeringQuery")
	}
	list, err := api.svc.QueryOfferings(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying services")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) createOffering(ctx echo.Context) error {
	var data fablab.Offering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Offering")
	}
	o, err := api.svc.CreateOffering(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating service")
	}
	return ctx.JSON(http.StatusCreated, o)
}

func (api *fablabApi) retrieveOffering(ctx echo.Context) error {
	o, err := api.svc.GetOffering(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding service")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *fablabApi) updateOffering(ctx echo.Context) error {
	var data fablab.UpdateOffering
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOffering")
	}
	o, err := api.svc.UpdateOffering(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating service")
	}
	return ctx.JSON(http.StatusOK, o)
}

func (api *fablabApi) destroyOffering(ctx echo.Context) error {
	if _, err := api.svc.GetOffering(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding service")
	}
	if err := api.svc.DeleteOfferings(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting service")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Pricing

func (api *fablabApi) queryPlans(ctx echo.Context) error {
	var params planQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to planQuery")
	}
	list, err := api.svc.QueryPlans(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying pricing plans")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) createPlan(ctx echo.Context) error {
	var data fablab.Plan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Plan")
	}
	p, err := api.svc.CreatePlan(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating pricing plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *fablabApi) retrievePlan(ctx echo.Context) error {
	p, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding pricing plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *fablabApi) updatePlan(ctx echo.Context) error {
	var data fablab.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}
	p, err := api.svc.UpdatePlan(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating pricing plan")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *fablabApi) destroyPlan(ctx echo.Context) error {
	if _, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding pricing plan")
	}
	if err := api.svc.DeletePlans(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting pricing plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Reservations

func (api *fablabApi) queryReservations(ctx echo.Context) error {
	var params reservationQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to reservationQuery")
	}
	list, err := api.svc.QueryReservations(ctx.Request().Context(), params.filter(), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying reservations")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *fablabApi) retrieveReservation(ctx echo.Context) error {
	res, err := api.svc.GetReservation(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding reservation")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *fablabApi) reviewReservation(ctx echo.Context) error {
	var data fablab.ReviewReservation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewReservation")
	}
	res, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing reservation")
	}
	return ctx.JSON(http.StatusOK, res)
}

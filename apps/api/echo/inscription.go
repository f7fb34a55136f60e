package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/core/user"
)

// kindRoles maps an inscription kind to the staff role reviewing it.
var kindRoles = map[string]string{
	inscription.KindFormation: user.RoleStaffTraining,
	inscription.KindEvent:     user.RoleStaffEvents,
	inscription.KindFabLab:    user.RoleStaffFabLab,
}

type inscriptionApi struct {
	svc    *inscription.Service
	usrSvc *user.Service
	kind   string // forced kind, for the per-kind queues
}

func registerInscriptionAPI(public, admin *echo.Group, svc *inscription.Service, usrSvc *user.Service) {
	api := inscriptionApi{svc: svc, usrSvc: usrSvc}

	public.POST("/inscriptions", api.submit)

	staff := staffMiddleware(user.StaffRoles...)
	admin.GET("/dashboard", api.dashboard, staff)

	ag := admin.Group("/inscriptions", staff)
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.review)
	ag.DELETE("/:id", api.destroy)

	formations := inscriptionApi{svc: svc, usrSvc: usrSvc, kind: inscription.KindFormation}
	fg := admin.Group("/formation-inscriptions", staffMiddleware(user.RoleStaffTraining))
	fg.GET("", formations.query)
	fg.GET("/:id", formations.retrieve)
	fg.PUT("/:id", formations.review)
}

func (api *inscriptionApi) submit(ctx echo.Context) error {
	var data inscription.NewInscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInscription")
	}
	ins, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting inscription")
	}
	return ctx.JSON(http.StatusCreated, ins)
}

func (api *inscriptionApi) dashboard(ctx echo.Context) error {
	d, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *inscriptionApi) query(ctx echo.Context) error {
	var params inscriptionQuery
	if err := ctx.Bind(&params); err != nil {
		return errors.Wrap(err, "binding to inscriptionQuery")
	}
	filter := params.filter()
	if api.kind != "" {
		filter.Kind = api.kind
	}

	list, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying inscriptions")
	}
	return ctx.JSON(http.StatusOK, list)
}

// object finds the inscription of the `:id` path param, within the forced kind if any.
func (api *inscriptionApi) object(ctx echo.Context) (inscription.Inscription, error) {
	ins, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return inscription.Inscription{}, errors.Wrap(err, "finding inscription")
	}
	if api.kind != "" && ins.Kind != api.kind {
		return inscription.Inscription{}, inscription.ErrNotFound
	}
	return ins, nil
}

func (api *inscriptionApi) retrieve(ctx echo.Context) error {
	ins, err := api.object(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (api *inscriptionApi) review(ctx echo.Context) error {
	ins, err := api.object(ctx)
	if err != nil {
		return err
	}
	if !contextCanManage(ctx, kindRoles[ins.Kind]) {
		return errHttpForbidden
	}

	var data inscription.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	reviewer, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ins, err = api.svc.Review(ctx.Request().Context(), ins.ID, reviewer.ID, data)
	if err != nil {
		return errors.Wrap(err, "reviewing inscription")
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (api *inscriptionApi) destroy(ctx echo.Context) error {
	ins, err := api.object(ctx)
	if err != nil {
		return err
	}
	if !contextCanManage(ctx, kindRoles[ins.Kind]) {
		return errHttpForbidden
	}
	if err = api.svc.Delete(ctx.Request().Context(), ins.ID); err != nil {
		return errors.Wrap(err, "deleting inscription")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *inscriptionApi) destroyMultiple(ctx echo.Context) error {
	var query idsQuery
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to idsQuery")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	// bulk deletion spans every kind
	if !contextCanManage(ctx) {
		return errHttpForbidden
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting inscriptions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

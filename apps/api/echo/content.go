package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core/content"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
)

const homeHighlights = 3

type contentApi struct {
	contactSvc   *content.ContactService
	formationSvc *formation.Service
	eventSvc     *event.Service
	fablabSvc    *fablab.Service
}

func registerContentAPI(
	g *echo.Group,
	contactSvc *content.ContactService,
	formationSvc *formation.Service,
	eventSvc *event.Service,
	fablabSvc *fablab.Service,
) {
	api := contentApi{
		contactSvc:   contactSvc,
		formationSvc: formationSvc,
		eventSvc:     eventSvc,
		fablabSvc:    fablabSvc,
	}

	g.GET("/pages", api.queryPages)
	g.GET("/pages/:slug", api.retrievePage)
	g.POST("/contact", api.contact)
}

// HomePage is the home page content along with what the site highlights.
type HomePage struct {
	content.Page
	Projects   []fablab.Project      `json:"projects"`
	Events     []event.Event         `json:"events"`
	Formations []formation.Formation `json:"formations"`
}

func (api *contentApi) queryPages(ctx echo.Context) error {
	list, err := content.Pages()
	if err != nil {
		return errors.Wrap(err, "listing pages")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *contentApi) retrievePage(ctx echo.Context) error {
	page, err := content.GetPage(ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding page")
	}
	if page.Slug != content.PageHome {
		return ctx.JSON(http.StatusOK, page)
	}

	reqCtx := ctx.Request().Context()
	home := HomePage{Page: page}
	if home.Projects, err = api.fablabSvc.FeaturedProjects(reqCtx, homeHighlights); err != nil {
		return errors.Wrap(err, "listing featured projects")
	}
	if home.Events, err = api.eventSvc.Upcoming(reqCtx, homeHighlights); err != nil {
		return errors.Wrap(err, "listing upcoming events")
	}
	if home.Formations, err = api.formationSvc.Published(reqCtx, homeHighlights); err != nil {
		return errors.Wrap(err, "listing published formations")
	}
	return ctx.JSON(http.StatusOK, home)
}

func (api *contentApi) contact(ctx echo.Context) error {
	var data content.ContactMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContactMessage")
	}
	if err := api.contactSvc.Send(data); err != nil {
		return errors.Wrap(err, "sending contact message")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Thank you, your message has been sent."})
}

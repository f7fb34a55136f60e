package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/user"
)

type emailTemplateApi struct {
	mailSvc  core.EmailService
	conf     *core.Config
	validate *validator.Validate
}

func registerEmailTemplateAPI(admin *echo.Group, mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) {
	api := emailTemplateApi{mailSvc: mailSvc, conf: conf, validate: validate}

	g := admin.Group("/email-templates", staffMiddleware(user.StaffRoles...))
	g.GET("", api.query)
	g.GET("/:name", api.retrieve)
	g.POST("/:name/preview", api.preview)
	g.POST("/:name/test", api.sendTest)
}

type (
	PreviewRequest struct {
		Data map[string]string `json:"data"`
	}

	TestEmailRequest struct {
		Email string            `json:"email" validate:"required,email"`
		Data  map[string]string `json:"data"`
	}
)

func (api *emailTemplateApi) query(ctx echo.Context) error {
	list, err := core.EmailTemplates()
	if err != nil {
		return errors.Wrap(err, "listing email templates")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *emailTemplateApi) retrieve(ctx echo.Context) error {
	tmpl, err := core.GetEmailTemplate(ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "finding email template")
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *emailTemplateApi) preview(ctx echo.Context) error {
	tmpl, err := core.GetEmailTemplate(ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "finding email template")
	}
	var data PreviewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}

	tc := core.NewTemplateContext(api.conf)
	tc.Strict = true // tell the staff what is missing
	out, err := tmpl.Render(data.Data, tc)
	if err != nil {
		return core.NewFieldError("data", err.Error())
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *emailTemplateApi) sendTest(ctx echo.Context) error {
	tmpl, err := core.GetEmailTemplate(ctx.Param("name"))
	if err != nil {
		return errors.Wrap(err, "finding email template")
	}
	var data TestEmailRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestEmailRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	tc := core.NewTemplateContext(api.conf)
	tc.Strict = true
	if _, err = tmpl.Render(data.Data, tc); err != nil {
		return core.NewFieldError("data", err.Error())
	}

	api.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: data.Email}},
		TemplateName: tmpl.Name,
		TemplateData: data.Data,
	})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Test email sent to " + data.Email + "."})
}

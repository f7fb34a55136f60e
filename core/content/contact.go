package content

import (
	"net/mail"

	"github.com/go-playground/validator/v10"

	"github.com/crec/backoffice/core"
)

// ContactMessage is a message sent through the public contact form.
type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=150,singleline"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"required,max=255,singleline"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (cm *ContactMessage) clean() {
	cm.Name = core.CleanString(cm.Name)
	cm.Email = core.CleanString(cm.Email, true /* lower */)
	cm.Subject = core.CleanString(cm.Subject)
	cm.Message = core.CleanString(cm.Message)
}

type ContactService struct {
	mailSvc  core.EmailService
	conf     *core.Config
	validate *validator.Validate
}

func NewContactService(mailSvc core.EmailService, conf *core.Config, validate *validator.Validate) *ContactService {
	return &ContactService{mailSvc: mailSvc, conf: conf, validate: validate}
}

// Send forwards the message to the staff and acknowledges it to the sender.
func (svc *ContactService) Send(cm ContactMessage) error {
	cm.clean()
	if err := svc.validate.Struct(cm); err != nil {
		return err
	}

	sender := mail.Address{Name: cm.Name, Address: cm.Email}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: svc.conf.AppName, Address: svc.conf.StaffEmail}},
			TemplateName: "contact_message",
			TemplateData: map[string]string{
				"name":    cm.Name,
				"email":   cm.Email,
				"subject": cm.Subject,
				"message": cm.Message,
			},
			ReplyTo: &sender,
		},
		&core.EmailMessage{
			To:           []mail.Address{sender},
			TemplateName: "contact_ack",
			TemplateData: map[string]string{
				"name":    cm.Name,
				"subject": cm.Subject,
			},
		},
	)
	return nil
}

package core

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/mail"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		ReplyTo     *mail.Address
		Subject     string // defaults to the template subject
		Category    string // defaults to the template category
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string
		TemplateData map[string]string
		TextContent  string
		HTMLContent  string
	}

	// TemplateContext holds the values every email template may refer to.
	TemplateContext struct {
		AppName         string
		FrontendBaseURL string
		Strict          bool // fail on missing variables
		Now             func() time.Time
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// NewTemplateContext builds the TemplateContext from the app config.
func NewTemplateContext(conf *Config) TemplateContext {
	return TemplateContext{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Strict:          conf.Debug || conf.TestMode,
		Now:             time.Now,
	}
}

// Render fills TextContent and HTMLContent (and the default Subject and Category) from BodyStr or the template.
func (m *EmailMessage) Render(tc TemplateContext) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	tmpl, err := GetEmailTemplate(m.TemplateName)
	if err != nil {
		return errors.Wrap(err, "getting email template")
	}
	rendered, err := tmpl.Render(m.TemplateData, tc)
	if err != nil {
		return errors.Wrapf(err, "rendering email template %q", m.TemplateName)
	}
	if m.BodyStr == "" {
		m.TextContent = rendered.Text
	}
	m.HTMLContent = rendered.HTML
	if m.Subject == "" {
		m.Subject = rendered.Subject
	}
	if m.Category == "" {
		m.Category = tmpl.Category
	}
	return nil
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(content)
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(path string, contentType ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(path), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

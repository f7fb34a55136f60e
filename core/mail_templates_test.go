package core

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplateContext(strict bool) TemplateContext {
	return TemplateContext{
		AppName:         "CREC",
		FrontendBaseURL: "http://crec.test/",
		Strict:          strict,
		Now:             func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestEmailTemplates(t *testing.T) {
	list, err := EmailTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, tmpl := range list {
		if i > 0 {
			assert.Less(t, list[i-1].Name, tmpl.Name)
		}
		assert.NotEmpty(t, tmpl.Subject, tmpl.Name)
		assert.NotEmpty(t, tmpl.Text, tmpl.Name)
		assert.NotContains(t, tmpl.HTML, "{{content}}", tmpl.Name)

		// every declared variable is enough to render the template strictly
		data := make(map[string]string, len(tmpl.Variables))
		for _, v := range tmpl.Variables {
			data[v] = "x"
		}
		_, err := tmpl.Render(data, testTemplateContext(true))
		assert.NoError(t, err, tmpl.Name)
	}

	_, err = GetEmailTemplate("nope")
	assert.True(t, IsNotFound(err))
}

func TestEmailTemplate_Render(t *testing.T) {
	tmpl := EmailTemplate{
		Name:    "greeting",
		Subject: "Hello {{ name }}",
		Text:    "Hi {{name}}, see {{frontend_url}}/events ({{year}})",
		HTML:    "<p>Hi {{name}}</p><footer>{{app_name}}</footer>",
	}

	got, err := tmpl.Render(map[string]string{"name": "<Awa>"}, testTemplateContext(true))
	require.NoError(t, err)
	assert.Equal(t, "Hello <Awa>", got.Subject)
	assert.Equal(t, "Hi <Awa>, see http://crec.test/events (2026)", got.Text)
	assert.Equal(t, "<p>Hi &lt;Awa&gt;</p><footer>CREC</footer>", got.HTML)

	_, err = tmpl.Render(nil, testTemplateContext(true))
	assert.Error(t, err)

	got, err = tmpl.Render(nil, testTemplateContext(false))
	require.NoError(t, err)
	assert.Equal(t, "Hello ", got.Subject)
}

func TestLoadTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/email/catalog.yaml": {Data: []byte("welcome:\n  subject: Welcome {{name}}\n  variables: [name]\n")},
		"templates/email/_base.html":   {Data: []byte("<html>{{content}}</html>")},
		"templates/email/welcome.txt":  {Data: []byte("Welcome {{name}}")},
		"templates/email/welcome.html": {Data: []byte("<b>{{name}}</b>")},
	}
	loaded, err := loadTemplates(fsys)
	require.NoError(t, err)
	require.Contains(t, loaded, "welcome")
	assert.Equal(t, "general", loaded["welcome"].Category)
	assert.Equal(t, "<html><b>{{name}}</b></html>", loaded["welcome"].HTML)

	delete(fsys, "templates/email/welcome.html")
	_, err = loadTemplates(fsys)
	assert.Error(t, err)

	fsys["templates/email/welcome.html"] = &fstest.MapFile{Data: []byte("<b>{{name</b>")}
	_, err = loadTemplates(fsys)
	assert.Error(t, err)
}

func TestEmailMessage_Render(t *testing.T) {
	msg := &EmailMessage{
		TemplateName: "contact_ack",
		TemplateData: map[string]string{"name": "Awa", "subject": "Visite"},
	}
	require.NoError(t, msg.Render(testTemplateContext(true)))
	assert.NotEmpty(t, msg.Subject)
	assert.True(t, strings.Contains(msg.TextContent, "Awa"))
	assert.Contains(t, msg.HTMLContent, "Visite")
	assert.NotEmpty(t, msg.Category)

	plain := &EmailMessage{BodyStr: "plain body"}
	require.NoError(t, plain.Render(testTemplateContext(true)))
	assert.Equal(t, "plain body", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)

	require.NoError(t, plain.Attach(strings.NewReader("a,b\n1,2\n"), "export.csv", "text/csv"))
	assert.True(t, plain.HasAttachments())
	assert.Equal(t, "YSxiCjEsMgo=", plain.Attachments[0].Content.String())
}

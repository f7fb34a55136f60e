package core

import (
	"fmt"
	"html"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"

	"github.com/crec/backoffice/assets"
)

const (
	tmplDir      = "templates/email"
	tmplCatalog  = "catalog.yaml"
	tmplBaseHTML = "_base.html"
	tmplStartTag = "{{"
	tmplEndTag   = "}}"
)

var (
	templates map[string]*EmailTemplate
	tmplErr   error
	tmplInit  sync.Once

	errTemplateNotFound = NewNotFoundError("email template")
)

// EmailTemplate is a hardcoded email whose `{{var}}` placeholders are substituted on render.
type EmailTemplate struct {
	Name        string   `json:"name" yaml:"-"`
	Description string   `json:"description" yaml:"description"`
	Subject     string   `json:"subject" yaml:"subject"`
	Category    string   `json:"category" yaml:"category"`
	Variables   []string `json:"variables" yaml:"variables"`
	HTML        string   `json:"html" yaml:"-"`
	Text        string   `json:"text" yaml:"-"`
}

type RenderedEmail struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// ParseEmailTemplates loads the template catalog. It is done lazily on first use otherwise.
func ParseEmailTemplates() error {
	tmplInit.Do(parseTemplates)
	return tmplErr
}

func parseTemplates() {
	templates, tmplErr = loadTemplates(assets.FS)
}

func loadTemplates(fsys fs.FS) (map[string]*EmailTemplate, error) {
	data, err := fs.ReadFile(fsys, path.Join(tmplDir, tmplCatalog))
	if err != nil {
		return nil, errors.Wrap(err, "reading email template catalog")
	}
	catalog := make(map[string]*EmailTemplate)
	if err = yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, "decoding email template catalog")
	}

	base, err := fs.ReadFile(fsys, path.Join(tmplDir, tmplBaseHTML))
	if err != nil {
		return nil, errors.Wrap(err, "reading base email template")
	}

	for name, tmpl := range catalog {
		tmpl.Name = name
		if tmpl.Category == "" {
			tmpl.Category = "general"
		}
		txt, err := fs.ReadFile(fsys, path.Join(tmplDir, name+".txt"))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s.txt", name)
		}
		tmpl.Text = string(txt)

		body, err := fs.ReadFile(fsys, path.Join(tmplDir, name+".html"))
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s.html", name)
		}
		tmpl.HTML = strings.Replace(string(base), tmplStartTag+"content"+tmplEndTag, string(body), 1)

		// placeholders must be closed: fasttemplate fails on unterminated tags
		for _, src := range []string{tmpl.Subject, tmpl.Text, tmpl.HTML} {
			if _, err := fasttemplate.NewTemplate(src, tmplStartTag, tmplEndTag); err != nil {
				return nil, errors.Wrapf(err, "parsing template %q", name)
			}
		}
	}
	return catalog, nil
}

// EmailTemplates returns all the templates, sorted by name.
func EmailTemplates() ([]EmailTemplate, error) {
	if err := ParseEmailTemplates(); err != nil {
		return nil, err
	}
	list := make([]EmailTemplate, 0, len(templates))
	for _, tmpl := range templates {
		list = append(list, *tmpl)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func GetEmailTemplate(name string) (EmailTemplate, error) {
	if err := ParseEmailTemplates(); err != nil {
		return EmailTemplate{}, err
	}
	tmpl, ok := templates[name]
	if !ok {
		return EmailTemplate{}, errTemplateNotFound
	}
	return *tmpl, nil
}

// Render substitutes the template variables. Values are HTML-escaped in the HTML part only.
func (t EmailTemplate) Render(data map[string]string, tc TemplateContext) (RenderedEmail, error) {
	vars := make(map[string]string, len(data)+3)
	for k, v := range data {
		vars[k] = v
	}
	vars["app_name"] = tc.AppName
	vars["frontend_url"] = strings.TrimSuffix(tc.FrontendBaseURL, "/")
	if tc.Now != nil {
		vars["year"] = strconv.Itoa(tc.Now().Year())
	}

	var (
		out RenderedEmail
		err error
	)
	if out.Subject, err = substitute(t.Subject, vars, tc.Strict, false); err != nil {
		return RenderedEmail{}, errors.Wrap(err, "subject")
	}
	if out.Text, err = substitute(t.Text, vars, tc.Strict, false); err != nil {
		return RenderedEmail{}, errors.Wrap(err, "text")
	}
	if out.HTML, err = substitute(t.HTML, vars, tc.Strict, true); err != nil {
		return RenderedEmail{}, errors.Wrap(err, "html")
	}
	return out, nil
}

func substitute(src string, vars map[string]string, strict, escape bool) (string, error) {
	tmpl, err := fasttemplate.NewTemplate(src, tmplStartTag, tmplEndTag)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	_, err = tmpl.ExecuteFunc(&b, func(w io.Writer, tag string) (int, error) {
		val, ok := vars[strings.TrimSpace(tag)]
		if !ok && strict {
			return 0, fmt.Errorf("missing template variable %q", strings.TrimSpace(tag))
		}
		if escape {
			val = html.EscapeString(val)
		}
		return io.WriteString(w, val)
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

package content

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/crec/backoffice/assets"
	"github.com/crec/backoffice/core"
)

const pagesDir = "content"

// Pages
const (
	PageHome    = "home"
	PageHistory = "history"
	PageFabLab  = "fablab"
)

var (
	ErrPageNotFound = core.NewNotFoundError("page")

	pages    map[string]Page
	pagesErr error
	pageInit sync.Once
)

type (
	Page struct {
		Slug     string    `json:"slug" yaml:"slug"`
		Title    string    `json:"title" yaml:"title"`
		Subtitle string    `json:"subtitle" yaml:"subtitle"`
		Sections []Section `json:"sections" yaml:"sections"`
	}

	Section struct {
		Heading string `json:"heading" yaml:"heading"`
		Body    string `json:"body,omitempty" yaml:"body"`
		Items   []Item `json:"items,omitempty" yaml:"items"`
	}

	Item struct {
		Title    string `json:"title" yaml:"title"`
		Text     string `json:"text,omitempty" yaml:"text"`
		Year     int    `json:"year,omitempty" yaml:"year"`
		ImageURL string `json:"image_url,omitempty" yaml:"image_url"`
	}

	// PageSummary lists a page without its content.
	PageSummary struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
	}
)

// LoadPages parses the static pages. It is done lazily on first use otherwise.
func LoadPages() error {
	pageInit.Do(func() {
		pages, pagesErr = loadPages(assets.FS)
	})
	return pagesErr
}

func loadPages(fsys fs.FS) (map[string]Page, error) {
	files, err := fs.Glob(fsys, path.Join(pagesDir, "*.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing pages")
	}

	loaded := make(map[string]Page, len(files))
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", file)
		}
		var page Page
		if err = yaml.Unmarshal(data, &page); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", file)
		}
		if page.Slug == "" {
			page.Slug = strings.TrimSuffix(path.Base(file), path.Ext(file))
		}
		loaded[page.Slug] = page
	}
	return loaded, nil
}

// Pages lists the available pages, sorted by slug.
func Pages() ([]PageSummary, error) {
	if err := LoadPages(); err != nil {
		return nil, err
	}
	list := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		list = append(list, PageSummary{Slug: p.Slug, Title: p.Title})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slug < list[j].Slug })
	return list, nil
}

func GetPage(slug string) (Page, error) {
	if err := LoadPages(); err != nil {
		return Page{}, err
	}
	p, ok := pages[core.CleanString(slug, true /* lower */)]
	if !ok {
		return Page{}, ErrPageNotFound
	}
	return p, nil
}

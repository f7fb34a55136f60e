package main

import (
	"context"
	"encoding/json"
	"io/fs"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/crec/backoffice/assets"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
)

const seedFile = "seed/seed.yaml"

// seedData holds the demo content; its field names follow the JSON API.
type seedData struct {
	Formations []formation.NewFormation `json:"formations"`
	Events     []event.NewEvent         `json:"events"`
	Services   []fablab.Offering        `json:"services"`
	Pricing    []fablab.Plan            `json:"pricing"`
	Projects   []fablab.Project         `json:"projects"`
}

func loadSeed(fsys fs.FS, name string) (seedData, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return seedData{}, errors.Wrapf(err, "reading %s", name)
	}

	// decode through JSON so that the API decoders (decimals, times) apply
	var raw map[string]interface{}
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return seedData{}, errors.Wrapf(err, "decoding %s", name)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return seedData{}, errors.Wrapf(err, "converting %s", name)
	}
	var sd seedData
	if err = json.Unmarshal(js, &sd); err != nil {
		return seedData{}, errors.Wrapf(err, "decoding %s", name)
	}
	return sd, nil
}

// seed fills the empty content tables with the embedded demo content. Non-empty tables are left alone.
func (cl *commandLine) seed() error {
	sd, err := loadSeed(assets.FS, seedFile)
	if err != nil {
		return err
	}
	ctx := context.Background()

	steps := []struct {
		name  string
		count func() (int, error)
		load  func() error
	}{
		{
			name: "formations",
			count: func() (int, error) {
				list, err := cl.formations.Query(ctx, nil, nil)
				return len(list), err
			},
			load: func() error {
				for _, nf := range sd.Formations {
					if _, err := cl.formations.Create(ctx, nf); err != nil {
						return errors.Wrapf(err, "formation %q", nf.Title)
					}
				}
				return nil
			},
		},
		{
			name: "events",
			count: func() (int, error) {
				list, err := cl.events.Query(ctx, nil, nil)
				return len(list), err
			},
			load: func() error {
				for _, ne := range sd.Events {
					if _, err := cl.events.Create(ctx, ne); err != nil {
						return errors.Wrapf(err, "event %q", ne.Title)
					}
				}
				return nil
			},
		},
		{
			name: "services",
			count: func() (int, error) {
				list, err := cl.fablab.QueryOfferings(ctx, nil, nil)
				return len(list), err
			},
			load: func() error {
				for _, o := range sd.Services {
					if _, err := cl.fablab.CreateOffering(ctx, o); err != nil {
						return errors.Wrapf(err, "service %q", o.Name)
					}
				}
				return nil
			},
		},
		{
			name: "pricing",
			count: func() (int, error) {
				list, err := cl.fablab.QueryPlans(ctx, nil, nil)
				return len(list), err
			},
			load: func() error {
				for _, p := range sd.Pricing {
					if _, err := cl.fablab.CreatePlan(ctx, p); err != nil {
						return errors.Wrapf(err, "pricing plan %q", p.Name)
					}
				}
				return nil
			},
		},
		{
			name: "projects",
			count: func() (int, error) {
				list, err := cl.fablab.QueryProjects(ctx, nil, nil)
				return len(list), err
			},
			load: func() error {
				for _, p := range sd.Projects {
					if _, err := cl.fablab.CreateProject(ctx, p); err != nil {
						return errors.Wrapf(err, "project %q", p.Title)
					}
				}
				return nil
			},
		},
	}

	for _, step := range steps {
		n, err := step.count()
		if err != nil {
			return errors.Wrapf(err, "counting %s", step.name)
		}
		if n > 0 {
			cl.logger.WithField("table", step.name).Info("not empty, skipped")
			continue
		}
		if err = step.load(); err != nil {
			return err
		}
		cl.logger.WithField("table", step.name).Info("seeded")
	}
	return nil
}

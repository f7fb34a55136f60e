package main

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/inscription"
)

const defaultExportFile = "crec-export.json"

type exportData struct {
	ExportedAt   time.Time                 `json:"exported_at"`
	Formations   []formation.Formation     `json:"formations"`
	Events       []event.Event             `json:"events"`
	Services     []fablab.Offering         `json:"services"`
	Pricing      []fablab.Plan             `json:"pricing"`
	Projects     []fablab.Project          `json:"projects"`
	Reservations []fablab.Reservation      `json:"reservations"`
	Inscriptions []inscription.Inscription `json:"inscriptions"`
}

// export writes everything to `path`, replacing the file atomically.
func (cl *commandLine) export(path string) error {
	var (
		ctx = context.Background()
		ed  = exportData{ExportedAt: time.Now().UTC()}
		err error
	)
	if ed.Formations, err = cl.formations.Query(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying formations")
	}
	if ed.Events, err = cl.events.Query(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying events")
	}
	if ed.Services, err = cl.fablab.QueryOfferings(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying services")
	}
	if ed.Pricing, err = cl.fablab.QueryPlans(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying pricing plans")
	}
	if ed.Projects, err = cl.fablab.QueryProjects(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if ed.Reservations, err = cl.fablab.QueryReservations(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying reservations")
	}
	if ed.Inscriptions, err = cl.inscriptions.Query(ctx, nil, nil); err != nil {
		return errors.Wrap(err, "querying inscriptions")
	}

	data, err := json.MarshalIndent(ed, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding export")
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	cl.logger.WithField("file", path).Info("export written")
	return nil
}

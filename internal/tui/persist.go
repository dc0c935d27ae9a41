package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/clickpace/internal/export"
	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/stats"
	"github.com/verte-zerg/clickpace/internal/store"
)

// Options controls where finished sessions go.
type Options struct {
	// Store receives finished sessions; nil disables history.
	Store *store.Store
	// Export writes CSV and text reports when set.
	Export    bool
	ExportDir string
	YAML      bool
	Logger    *slog.Logger
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Outcome is what happened to a finished session.
type Outcome struct {
	Record    model.SessionRecord
	Report    stats.Report
	Aggregate model.SessionAggregate
	Engine    *stats.EngineReport
	StoredID  int64
	Files     export.Files
	Errors    []string
}

// persist stores and exports a closed session. Failures are collected in the
// outcome and never abort the remaining steps.
func persist(rec model.SessionRecord, engine *stats.EngineReport, opts Options) Outcome {
	out := Outcome{
		Record:    rec,
		Report:    stats.Compute(rec),
		Aggregate: stats.Summarize(rec),
		Engine:    engine,
	}
	if len(rec.Events) == 0 {
		return out
	}
	log := opts.Logger.With("component", "tui", "session", rec.ID)
	if opts.Store != nil {
		id, err := opts.Store.InsertSession(context.Background(), rec, out.Aggregate)
		if err != nil {
			log.Error("save session", "err", err)
			out.Errors = append(out.Errors, fmt.Sprintf("save session: %v", err))
		} else {
			out.StoredID = id
		}
	}
	if opts.Export {
		files, err := export.Session(rec, export.Options{
			Dir:    opts.ExportDir,
			YAML:   opts.YAML,
			Engine: engine,
			Now:    opts.Now,
			Logger: opts.Logger,
		})
		if err != nil {
			log.Error("export session", "err", err)
			out.Errors = append(out.Errors, fmt.Sprintf("export: %v", err))
		} else {
			out.Files = files
		}
	}
	return out
}

package export

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/session"
	"github.com/verte-zerg/clickpace/internal/stats"
)

// Options selects what Session writes.
type Options struct {
	Dir    string
	YAML   bool
	Engine *stats.EngineReport
	Now    func() time.Time
	Logger *slog.Logger
}

// Session exports rec as CSV rows, a text report and optionally YAML. The
// returned Files omits artifacts that were not written.
func Session(rec model.SessionRecord, opts Options) (Files, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := ResolveDir(opts.Dir, logger)
	if err != nil {
		return Files{}, err
	}
	generated := now()
	files, err := NextFiles(dir, generated)
	if err != nil {
		return Files{}, err
	}
	if !opts.YAML {
		files.YAML = ""
	}

	report := stats.Compute(rec)
	if err := writeFile(files.CSV, func(w io.Writer) error {
		return WriteCSV(w, session.Rows(rec))
	}); err != nil {
		return Files{}, err
	}
	if err := writeFile(files.Stats, func(w io.Writer) error {
		return WriteText(w, report, opts.Engine, generated, files)
	}); err != nil {
		return Files{}, err
	}
	if files.YAML != "" {
		doc := Document{
			Generated: generated,
			SessionID: rec.ID,
			StartedAt: rec.StartedAt,
			EndedAt:   rec.EndedAt,
			Report:    report,
			Engine:    opts.Engine,
		}
		if err := writeFile(files.YAML, func(w io.Writer) error { return WriteYAML(w, doc) }); err != nil {
			return Files{}, err
		}
	}
	logger.Info("session exported", "component", "export", "csv", files.CSV, "events", len(rec.Events))
	return files, nil
}

func writeFile(path string, fill func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return bw.Flush()
}

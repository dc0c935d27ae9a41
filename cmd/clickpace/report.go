package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/clickpace/internal/export"
	"github.com/verte-zerg/clickpace/internal/generator"
	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/session"
	"github.com/verte-zerg/clickpace/internal/stats"
	"github.com/verte-zerg/clickpace/internal/statsui"
	"github.com/verte-zerg/clickpace/internal/store"
	"github.com/verte-zerg/clickpace/internal/tui"
)

const defaultSimulateCount = 1000

var (
	historyKind  string
	historySince string
	historyLast  int

	statsCurveWindow int
	statsPlain       bool

	simulateCount int
	simulateSave  bool
	simulateWidth int
)

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&historyKind, "kind", "", "session kind filter (benchmark or clicker)")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
}

func historyConfig() (model.StatsConfig, error) {
	kind, err := statsui.ParseKind(historyKind)
	if err != nil {
		return model.StatsConfig{}, fmt.Errorf("invalid --kind value: %w", err)
	}
	var sinceTime *time.Time
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if historyLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	return model.StatsConfig{Kind: kind, Since: sinceTime, Last: historyLast}, nil
}

func printHistory(ctx context.Context, w io.Writer, st stats.HistoryLister, cfg model.StatsConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	history, err := stats.BuildHistory(ctx, st, cfg, 5)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if err := stats.RenderSummary(w, history.Sessions); err != nil {
		return err
	}
	if len(history.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderCurves(w, history.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nTop sessions by CPS"); err != nil {
		return err
	}
	return stats.RenderSessionTable(w, history.Top)
}

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
	addHistoryFlags(cmd)
	return cmd
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := historyConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cmd, fileCfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	history, err := stats.BuildHistory(cmd.Context(), st, cfg, 0)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	return stats.RenderSessionTable(cmd.OutOrStdout(), history.Sessions)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Write CSV and text reports for a stored session (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "report directory (default: XDG data dir)")
	cmd.Flags().BoolVar(&exportYAML, "yaml", false, "also write a YAML report")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cmd, fileCfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var id int64
	if len(args) == 1 {
		id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid session id %q", args[0])
		}
	} else {
		id, err = st.LatestSessionID(ctx, "")
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no sessions stored yet")
		}
		if err != nil {
			return fmt.Errorf("failed to find latest session: %w", err)
		}
	}
	rec, _, err := st.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	opts := exportOptions(cmd, fileCfg, nil)
	files, err := export.Session(rec, export.Options{
		Dir:    opts.ExportDir,
		YAML:   opts.YAML,
		Logger: slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("failed to export session %d: %w", id, err)
	}
	return printFiles(cmd.OutOrStdout(), files)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate delays without acting and print the timing report",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	addClickerFlags(cmd)
	cmd.Flags().IntVar(&simulateCount, "count", defaultSimulateCount, "number of actions to simulate")
	cmd.Flags().BoolVar(&simulateSave, "save", false, "store the simulated session in history")
	cmd.Flags().IntVar(&simulateWidth, "width", 0, "plot width (default: terminal width)")
	return cmd
}

// simulation is the result of a headless engine run.
type simulation struct {
	record model.SessionRecord
	report stats.Report
	engine stats.EngineReport
}

// simulate runs the generator on a virtual clock, honouring the safety delay
// exactly as the driver would.
func simulate(cfg model.ClickerConfig, count int, start time.Time) simulation {
	now := start
	clock := func() time.Time { return now }
	genCfg := generator.FromClicker(cfg)
	genCfg.KeepHistory = true
	genCfg.Now = clock
	gen := generator.New(genCfg)
	sess := session.New(session.Config{Name: "simulation", Kind: model.KindClicker, Now: clock})

	sess.Start()
	for i := 0; i < count; i++ {
		now = now.Add(gen.SafetyDelay(now))
		delay := gen.NextDelay()
		now = now.Add(gen.HoldDuration())
		gen.RecordAction(now)
		if _, err := sess.RecordAt(now, cfg.Button); err != nil {
			break
		}
		now = now.Add(time.Duration(delay * float64(time.Millisecond)))
	}
	sess.Close()
	rec := sess.Snapshot()
	act := stats.ActivityOf(rec)
	engine, _ := stats.ComputeEngine(gen.History(), gen.Diagnostics(), act, gen.CeilingCPS())
	return simulation{record: rec, report: stats.Compute(rec), engine: engine}
}

func runSimulateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := clickerConfig(cmd, fileCfg)
	if err != nil {
		return err
	}
	if simulateCount <= 0 {
		return fmt.Errorf("--count must be > 0")
	}
	closeLog, err := setupLogging(cmd, fileCfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	sim := simulate(cfg, simulateCount, time.Now())
	w := cmd.OutOrStdout()
	if err := stats.RenderAnalysis(w, sim.report, simulateWidth); err != nil {
		return err
	}
	if err := stats.RenderEngine(w, sim.engine); err != nil {
		return err
	}
	if err := printVerdict(w, cfg, sim); err != nil {
		return err
	}

	if !simulateSave {
		return nil
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	id, err := st.InsertSession(cmd.Context(), sim.record, stats.Summarize(sim.record))
	if err != nil {
		return fmt.Errorf("failed to save simulation: %w", err)
	}
	_, err = fmt.Fprintf(w, "Saved as session %d\n", id)
	return err
}

// printVerdict prints one colored line per engine property.
func printVerdict(w io.Writer, cfg model.ClickerConfig, sim simulation) error {
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	e := sim.engine
	checks := []struct {
		pass bool
		text string
	}{
		{e.CeilingRespected, fmt.Sprintf("max CPS %.2f <= %.0f", e.MaxCPS, e.CeilingCPS)},
		{e.MinDelayMs >= cfg.MinDelayMs && e.MaxDelayMs <= cfg.MaxDelayMs,
			fmt.Sprintf("delays within [%.0f, %.0f] ms (%.1f..%.1f)", cfg.MinDelayMs, cfg.MaxDelayMs, e.MinDelayMs, e.MaxDelayMs)},
		{e.VarianceOK && e.Variance >= cfg.VarianceThreshold,
			fmt.Sprintf("recent variance %.1f >= %.0f", e.Variance, cfg.VarianceThreshold)},
	}
	for _, c := range checks {
		mark := ok.Sprint("PASS")
		if !c.pass {
			mark = bad.Sprint("FAIL")
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", mark, c.text); err != nil {
			return err
		}
	}
	return nil
}

func printOutcome(w io.Writer, out *tui.Outcome) {
	if len(out.Record.Events) == 0 {
		return
	}
	r := out.Report
	if _, err := fmt.Fprintf(w, "%s: %d clicks in %.2fs (%.2f CPS, %s)\n",
		out.Record.Name, r.Clicks, r.DurationSeconds, r.CPS, r.Consistency); err != nil {
		return
	}
	if out.StoredID > 0 {
		if _, err := fmt.Fprintf(w, "Stored as session %d\n", out.StoredID); err != nil {
			return
		}
	}
	if err := printFiles(w, out.Files); err != nil {
		return
	}
	for _, e := range out.Errors {
		logErrf("%s\n", e)
	}
}

func printFiles(w io.Writer, files export.Files) error {
	for _, path := range []string{files.CSV, files.Stats, files.YAML} {
		if path == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "Wrote %s\n", path); err != nil {
			return err
		}
	}
	return nil
}

// Package main provides the CLI entrypoint for clickpace.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/clickpace/internal/config"
	"github.com/verte-zerg/clickpace/internal/driver"
	"github.com/verte-zerg/clickpace/internal/generator"
	"github.com/verte-zerg/clickpace/internal/logging"
	"github.com/verte-zerg/clickpace/internal/model"
	"github.com/verte-zerg/clickpace/internal/rateguard"
	"github.com/verte-zerg/clickpace/internal/statsui"
	"github.com/verte-zerg/clickpace/internal/store"
	"github.com/verte-zerg/clickpace/internal/tui"
)

const (
	defaultBenchName     = "Benchmark"
	defaultBenchDuration = 10
	defaultStatusEvery   = 5
	defaultButton        = "LEFT"
	defaultPollInterval  = 10
	defaultCurveWindow   = 5
	defaultMaxBenchSecs  = 300
	defaultLogMaxSizeMB  = 5
	defaultLogMaxBackups = 3
)

var (
	logLevel string
	dbPath   string

	benchName        string
	benchDuration    int
	benchDoubleThr   float64
	benchButton      string
	benchStatusEvery int

	clickMinDelay    float64
	clickMaxDelay    float64
	clickVarianceThr float64
	clickCeiling     float64
	clickNearCeiling float64
	clickSafetyMs    int
	clickPollMs      int
	clickButton      string
	clickSeed        int64

	exportEnabled bool
	exportDir     string
	exportYAML    bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clickpace",
		Short:         "Click timing benchmark and adaptive delay engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runBenchCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database path (default: XDG data dir)")

	rootCmd.Flags().StringVar(&benchName, "name", defaultBenchName, "session name")
	rootCmd.Flags().IntVar(&benchDuration, "duration", defaultBenchDuration, "session length in seconds (1-300)")
	rootCmd.Flags().Float64Var(&benchDoubleThr, "double-threshold", model.DefaultDoubleThresholdMs, "delay in ms below which a click counts as double")
	rootCmd.Flags().StringVar(&benchButton, "button", defaultButton, "label recorded for keyboard clicks")
	rootCmd.Flags().IntVar(&benchStatusEvery, "status-every", defaultStatusEvery, "update the status line every N clicks")
	addExportFlags(rootCmd)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&exportEnabled, "export", true, "write CSV and text reports when a session ends")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "report directory (default: XDG data dir)")
	cmd.Flags().BoolVar(&exportYAML, "yaml", false, "also write a YAML report")
}

func addClickerFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&clickMinDelay, "min-delay", generator.DefaultMinDelayMs, "lower delay bound in ms")
	cmd.Flags().Float64Var(&clickMaxDelay, "max-delay", generator.DefaultMaxDelayMs, "upper delay bound in ms")
	cmd.Flags().Float64Var(&clickVarianceThr, "variance-threshold", generator.DefaultVarianceThreshold, "variance below which timing is treated as too regular")
	cmd.Flags().Float64Var(&clickCeiling, "ceiling", rateguard.DefaultCeiling, "hard actions-per-second ceiling")
	cmd.Flags().Float64Var(&clickNearCeiling, "near-ceiling", rateguard.DefaultThreshold, "rate at which the safety delay kicks in")
	cmd.Flags().IntVar(&clickSafetyMs, "safety-delay", int(rateguard.DefaultSafetyDelay/time.Millisecond), "safety delay in ms")
	cmd.Flags().IntVar(&clickPollMs, "poll-interval", defaultPollInterval, "trigger poll interval in ms")
	cmd.Flags().StringVar(&clickButton, "button", defaultButton, "button to actuate")
	cmd.Flags().Int64Var(&clickSeed, "seed", 0, "random seed (0 seeds from the clock)")
}

// setupLogging installs the default logger. TUI commands log to the file only
// because the terminal belongs to the alt screen.
func setupLogging(cmd *cobra.Command, fileCfg config.FileConfig, tuiMode bool) (func(), error) {
	level := logLevel
	applyStringConfig(cmd, "log-level", &level, fileCfg.Log.Level)
	cfg := logging.Config{
		Level:      level,
		Console:    !tuiMode,
		File:       config.DefaultLogPath(),
		MaxSizeMB:  defaultLogMaxSizeMB,
		MaxBackups: defaultLogMaxBackups,
	}
	if fileCfg.Log.File != nil {
		cfg.File = *fileCfg.Log.File
	}
	if fileCfg.Log.MaxSizeMB != nil {
		cfg.MaxSizeMB = *fileCfg.Log.MaxSizeMB
	}
	if fileCfg.Log.MaxBackups != nil {
		cfg.MaxBackups = *fileCfg.Log.MaxBackups
	}
	logger, closeFn, err := logging.Setup(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return func() {
		if cerr := closeFn(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}, nil
}

func loadConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func openStore() (*store.Store, func(), error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			slog.Error("failed to close db", "err", cerr)
		}
	}, nil
}

func exportOptions(cmd *cobra.Command, fileCfg config.FileConfig, st *store.Store) tui.Options {
	dir := config.DefaultExportDir()
	if fileCfg.Export.Dir != nil {
		dir = *fileCfg.Export.Dir
	}
	if cmd.Flags().Changed("export-dir") {
		dir = exportDir
	}
	applyBoolConfig(cmd, "yaml", &exportYAML, fileCfg.Export.YAML)
	return tui.Options{
		Store:     st,
		Export:    exportEnabled,
		ExportDir: dir,
		YAML:      exportYAML,
		Logger:    slog.Default(),
	}
}

func runBenchCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "duration", &benchDuration, fileCfg.Bench.Duration)
	applyFloatConfig(cmd, "double-threshold", &benchDoubleThr, fileCfg.Bench.DoubleThreshold)
	applyStringConfig(cmd, "button", &benchButton, fileCfg.Bench.Button)
	applyIntConfig(cmd, "status-every", &benchStatusEvery, fileCfg.Bench.StatusEvery)

	cfg := model.BenchConfig{
		Name:              strings.TrimSpace(benchName),
		Duration:          time.Duration(benchDuration) * time.Second,
		DoubleThresholdMs: benchDoubleThr,
		Button:            strings.ToUpper(strings.TrimSpace(benchButton)),
		StatusEvery:       benchStatusEvery,
	}
	if err := validateBenchConfig(cfg); err != nil {
		return err
	}

	closeLog, err := setupLogging(cmd, fileCfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	m := tui.NewModel(cfg, exportOptions(cmd, fileCfg, st))
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if out := m.Outcome(); out != nil {
		printOutcome(cmd.OutOrStdout(), out)
	}
	return nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the adaptive delay engine (space toggles actions)",
		Args:  cobra.NoArgs,
		RunE:  runClickerCmd,
	}
	addClickerFlags(cmd)
	addExportFlags(cmd)
	return cmd
}

// clickerConfig merges flags with the config file and validates the result.
func clickerConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.ClickerConfig, error) {
	c := fileCfg.Clicker
	applyFloatConfig(cmd, "min-delay", &clickMinDelay, c.MinDelay)
	applyFloatConfig(cmd, "max-delay", &clickMaxDelay, c.MaxDelay)
	applyFloatConfig(cmd, "variance-threshold", &clickVarianceThr, c.VarianceThreshold)
	applyFloatConfig(cmd, "ceiling", &clickCeiling, c.Ceiling)
	applyFloatConfig(cmd, "near-ceiling", &clickNearCeiling, c.NearCeiling)
	applyIntConfig(cmd, "safety-delay", &clickSafetyMs, c.SafetyDelay)
	applyIntConfig(cmd, "poll-interval", &clickPollMs, c.PollInterval)
	applyStringConfig(cmd, "button", &clickButton, c.Button)
	applyInt64Config(cmd, "seed", &clickSeed, c.Seed)

	cfg := model.ClickerConfig{
		MinDelayMs:        clickMinDelay,
		MaxDelayMs:        clickMaxDelay,
		VarianceThreshold: clickVarianceThr,
		CeilingCPS:        clickCeiling,
		NearCeilingCPS:    clickNearCeiling,
		SafetyDelay:       time.Duration(clickSafetyMs) * time.Millisecond,
		PollInterval:      time.Duration(clickPollMs) * time.Millisecond,
		Button:            strings.ToUpper(strings.TrimSpace(clickButton)),
		Seed:              clickSeed,
	}
	return cfg, validateClickerConfig(cfg)
}

func runClickerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := clickerConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cmd, fileCfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	m := tui.NewRunModel(cfg, driver.NewDryRunActuator(slog.Default()), exportOptions(cmd, fileCfg, st))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if out := m.Outcome(); out != nil {
		printOutcome(cmd.OutOrStdout(), out)
	}
	if err := m.Err(); err != nil {
		return fmt.Errorf("clicker stopped: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse session history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addHistoryFlags(cmd)
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print the summary instead of opening the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := historyConfig()
	if err != nil {
		return err
	}
	cfg.CurveWindow = statsCurveWindow
	if cfg.CurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	closeLog, err := setupLogging(cmd, fileCfg, !statsPlain)
	if err != nil {
		return err
	}
	defer closeLog()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if statsPlain {
		return printHistory(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if _, err := config.WriteDefault(path, defaultConfigTemplate()); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# clickpace configuration
# Uncomment a value to enable it. CLI flags override config values.

[bench]
# duration = %d             # Session length in seconds (1-%d)
# double-threshold = %.1f # Delay in ms below which a click counts as double
# button = %q           # Label recorded for keyboard clicks
# status-every = %d         # Status line cadence in clicks

[clicker]
# min-delay = %.1f         # Lower delay bound in ms
# max-delay = %.1f        # Upper delay bound in ms
# variance-threshold = %.1f # Variance below which timing is too regular
# ceiling = %.1f          # Hard actions-per-second ceiling
# near-ceiling = %.1f     # Rate at which the safety delay kicks in
# safety-delay = %d         # Safety delay in ms
# poll-interval = %d        # Trigger poll interval in ms
# button = %q           # Button to actuate
# seed = 0                 # Random seed (0 seeds from the clock)

[export]
# dir = %q
# yaml = false

[log]
# level = "info"
# file = %q
# max-size-mb = %d
# max-backups = %d
`,
		defaultBenchDuration,
		defaultMaxBenchSecs,
		model.DefaultDoubleThresholdMs,
		defaultButton,
		defaultStatusEvery,
		generator.DefaultMinDelayMs,
		generator.DefaultMaxDelayMs,
		generator.DefaultVarianceThreshold,
		rateguard.DefaultCeiling,
		rateguard.DefaultThreshold,
		int(rateguard.DefaultSafetyDelay/time.Millisecond),
		defaultPollInterval,
		defaultButton,
		config.DefaultExportDir(),
		config.DefaultLogPath(),
		defaultLogMaxSizeMB,
		defaultLogMaxBackups,
	)
}

func validateBenchConfig(cfg model.BenchConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("--name must not be empty")
	}
	if cfg.Duration < time.Second || cfg.Duration > defaultMaxBenchSecs*time.Second {
		return fmt.Errorf("--duration must be between 1 and %d seconds", defaultMaxBenchSecs)
	}
	if cfg.DoubleThresholdMs <= 0 {
		return fmt.Errorf("--double-threshold must be > 0")
	}
	if cfg.StatusEvery <= 0 {
		return fmt.Errorf("--status-every must be > 0")
	}
	if cfg.Button == "" {
		return fmt.Errorf("--button must not be empty")
	}
	return nil
}

func validateClickerConfig(cfg model.ClickerConfig) error {
	if cfg.MinDelayMs <= 0 {
		return fmt.Errorf("--min-delay must be > 0")
	}
	if cfg.MinDelayMs >= cfg.MaxDelayMs {
		return fmt.Errorf("--min-delay must be less than --max-delay")
	}
	if cfg.VarianceThreshold <= 0 {
		return fmt.Errorf("--variance-threshold must be > 0")
	}
	if cfg.NearCeilingCPS <= 0 {
		return fmt.Errorf("--near-ceiling must be > 0")
	}
	if cfg.CeilingCPS <= cfg.NearCeilingCPS {
		return fmt.Errorf("--ceiling must be greater than --near-ceiling")
	}
	if cfg.SafetyDelay < 0 {
		return fmt.Errorf("--safety-delay must be >= 0")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("--poll-interval must be > 0")
	}
	if cfg.Button == "" {
		return fmt.Errorf("--button must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

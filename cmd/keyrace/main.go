// Package main provides the CLI entrypoint for keyrace.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/keyrace/internal/affirm"
	"github.com/verte-zerg/keyrace/internal/config"
	"github.com/verte-zerg/keyrace/internal/logging"
	"github.com/verte-zerg/keyrace/internal/model"
	"github.com/verte-zerg/keyrace/internal/race"
	"github.com/verte-zerg/keyrace/internal/replay"
	"github.com/verte-zerg/keyrace/internal/stats"
	"github.com/verte-zerg/keyrace/internal/store"
	"github.com/verte-zerg/keyrace/internal/tui"
)

const (
	defaultRepeatWindowMs = 60
	defaultCurveWindow    = 5
)

var (
	raceTarget       int
	raceRepeatWindow int
	affirmationsPath string
	logFile          string
	logLevel         string

	replaySeed int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyrace",
		Short:         "Race to a number of distinct key presses",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runRaceCmd,
	}

	rootCmd.PersistentFlags().IntVar(&raceTarget, "target", int(race.DefaultTarget), "distinct presses needed to finish")
	rootCmd.PersistentFlags().StringVar(&affirmationsPath, "affirmations", "", "file with one affirmation per line")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (race UI default: "+config.DefaultLogPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&raceRepeatWindow, "repeat-window-ms", defaultRepeatWindowMs, "same-key gap treated as auto-repeat (0 disables)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())

	return rootCmd
}

func runRaceCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.LogFile == "" {
		cfg.LogFile = config.DefaultLogPath()
	}
	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog(closer)

	pool, err := loadAffirmations(cfg.AffirmationsPath)
	if err != nil {
		return err
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return fmt.Errorf("failed to open race history: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("failed to close race history")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"target":           cfg.Target,
		"repeat_window_ms": cfg.RepeatWindowMs,
		"affirmations":     len(pool),
	}).Info("starting race UI")

	m := tui.NewModel(tui.Options{
		Target:       uint32(cfg.Target),
		Affirmations: pool,
		RepeatWindow: time.Duration(cfg.RepeatWindowMs) * time.Millisecond,
		Store:        st,
		Stats:        model.StatsConfig{CurveWindow: defaultCurveWindow},
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a timed key event script through the race engine",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().Int64Var(&replaySeed, "seed", 0, "seed for affirmation choice (0 picks from the clock)")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog(closer)

	pool, err := loadAffirmations(cfg.AffirmationsPath)
	if err != nil {
		return err
	}
	events, err := replay.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return fmt.Errorf("failed to open race history: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("failed to close race history")
		}
	}()

	opts := replay.Options{
		Target:       uint32(cfg.Target),
		Affirmations: pool,
		Store:        st,
	}
	if replaySeed != 0 {
		opts.Rand = rand.New(rand.NewSource(replaySeed))
	}
	ctx := context.Background()
	res, err := replay.Run(ctx, events, opts)
	if err != nil {
		return err
	}
	return writeReplay(ctx, cmd.OutOrStdout(), st, res)
}

func writeReplay(ctx context.Context, w io.Writer, st *store.Store, res replay.Result) error {
	for _, line := range res.Lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "\nFinal: %s  %s\n\n", res.State, res.Snapshot.Message()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if res.Finished == 0 {
		return nil
	}
	report, err := stats.BuildReport(ctx, st, model.StatsConfig{CurveWindow: defaultCurveWindow})
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderSummary(w, report.Races); err != nil {
		return err
	}
	if len(report.Races) > 1 {
		if err := stats.RenderCurve(w, report.Races, defaultCurveWindow, 0, 0, false); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return stats.RenderKeyTable(w, report.KeyAggsAll)
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
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
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

// resolveConfig merges the config file under flags that were set explicitly.
func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "target", &raceTarget, fileCfg.Race.Target)
	applyIntConfig(cmd, "repeat-window-ms", &raceRepeatWindow, fileCfg.Race.RepeatWindowMs)
	applyStringConfig(cmd, "affirmations", &affirmationsPath, fileCfg.Race.AffirmationsPath)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	cfg := model.Config{
		Target:           raceTarget,
		RepeatWindowMs:   raceRepeatWindow,
		AffirmationsPath: affirmationsPath,
		LogFile:          logFile,
		LogLevel:         logLevel,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// loadAffirmations reads the configured pool. With no path set, a list at
// the default location is used when present.
func loadAffirmations(path string) ([]string, error) {
	if path == "" {
		path = config.DefaultAffirmationsPath()
		if _, err := os.Stat(path); err != nil {
			return affirm.Default(), nil
		}
	}
	pool, err := affirm.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load affirmations from %s: %w", path, err)
	}
	return pool, nil
}

func closeLog(closer io.Closer) {
	if err := closer.Close(); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "failed to close log: %v\n", err); werr != nil {
			// Best-effort report to stderr.
			_ = werr
		}
	}
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

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keyrace configuration
# Uncomment a value to enable it. CLI flags override config values.

[race]
# target = %d              # Distinct presses needed to finish
# repeat-window-ms = %d      # Same-key gap treated as auto-repeat (0 disables)
# affirmations = %q

[log]
# file = %q
# level = %q
`,
		race.DefaultTarget,
		defaultRepeatWindowMs,
		config.DefaultAffirmationsPath(),
		config.DefaultLogPath(),
		logging.DefaultLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Target <= 0 || int64(cfg.Target) > math.MaxUint32 {
		return fmt.Errorf("--target must be between 1 and %d", uint32(math.MaxUint32))
	}
	if cfg.RepeatWindowMs < 0 {
		return fmt.Errorf("--repeat-window-ms must be >= 0")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

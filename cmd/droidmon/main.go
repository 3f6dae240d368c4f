// Package main is the CLI entry point for droidmon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/droid_mon/internal/config"
	"github.com/eliteGoblin/focusd/droid_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/forcestop"
	"github.com/eliteGoblin/focusd/droid_mon/internal/infra"
	"github.com/eliteGoblin/focusd/droid_mon/internal/policy"
	"github.com/eliteGoblin/focusd/droid_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/droid_mon/internal/variant"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "droidmon",
	Short: "Force stop Android apps without root",
	Long: `droidmon force stops apps on an Android device over adb by driving the
Settings App Info screen: it opens the screen, taps Force stop and
confirms the dialog, the same way a person would.

No root and no special permissions are needed on the device.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var killCmd = &cobra.Command{
	Use:   "kill <package>",
	Short: "Force stop one app",
	Args:  cobra.ExactArgs(1),
	RunE:  runKill,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running apps and the policy protecting each",
	RunE:  runList,
}

var boostCmd = &cobra.Command{
	Use:   "boost",
	Short: "Force stop every unprotected running app, largest first",
	Long: `Enumerates running apps, skips the ones protected by policy (system apps,
keyboards, launchers, alarm clocks, the companion app and the configured
protected list) and force stops the rest, largest memory user first.`,
	RunE: runBoost,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep blocked apps stopped",
	Long: `Runs until interrupted. Every watch_interval the running apps are checked
against blocked_packages and any match is force stopped. Logs go to
watch.log in the data directory.`,
	RunE: runWatch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent kill attempts",
	RunE:  runHistory,
}

var tempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Print the device CPU temperature",
	RunE:  runTemp,
}

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Run the force stop protocol against a recorded session",
	Long: `Feeds a recording (one JSON event per line) through the force stop state
machine without a device. Taps are logged instead of sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check adb, the device and the label catalog",
	RunE:  runDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	serialFlag   string
	verbose      bool
	jsonOutput   bool
	dryRun       bool
	historyLimit int
	replayPkg    string
	replaySDK    int
	replayModel  string
	replayLocale string
	replayDelay  time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.droidmon/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serialFlag, "serial", "s", "", "Device serial (overrides config and "+config.EnvSerial+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	boostCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list what would be stopped")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", infra.DefaultHistoryLimit, "Number of attempts to show")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	replayCmd.Flags().StringVarP(&replayPkg, "package", "p", "com.example.app", "Package the recording force stops")
	replayCmd.Flags().IntVar(&replaySDK, "sdk", 30, "API level of the recorded device")
	replayCmd.Flags().StringVar(&replayModel, "model", "", "Model of the recorded device")
	replayCmd.Flags().StringVar(&replayLocale, "locale", "en-US", "Locale of the recorded device")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "Pause between recorded events")

	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(boostCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tempCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if serialFlag != "" {
		cfg.Adb.Serial = serialFlag
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// setup loads config, builds the console logger and connects to the device.
func setup(ctx context.Context) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := createConsoleLogger(cfg.LogLevel)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		_ = logger.Sync()
	}, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runKill(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.observe(ctx); err != nil {
		return err
	}

	result, err := a.killer.KillApp(ctx, domain.TargetRequest{PackageName: args[0]})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s (last state %s, %dms)\n",
		result.Package, result.Outcome, result.LastStatus, result.DurationMs)
	if !result.Stopped() {
		return fmt.Errorf("force stop of %s did not complete: %s", result.Package, result.Outcome)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	procs, err := a.lister.ListRunning(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Running Applications ===")
	fmt.Printf("%-50s %9s  %s\n", "PACKAGE", "RSS", "PROTECTED BY")
	for _, p := range procs {
		by, ok := a.policies.Protects(ctx, p)
		if !ok {
			by = "-"
		}
		fmt.Printf("%-50s %9s  %s\n", p.PackageName, formatBytes(p.ResidentMemoryBytes), by)
	}
	fmt.Printf("\n%d packages, policies: %v\n", len(procs), a.policies.List())
	fmt.Println("============================")
	return nil
}

func runBoost(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if dryRun {
		candidates, skipped, err := a.booster.Candidates(ctx, usecase.All)
		if err != nil {
			return err
		}
		fmt.Println("\n=== Boost (dry run) ===")
		for _, p := range candidates {
			fmt.Printf("  would stop %-50s %9s\n", p.PackageName, formatBytes(p.ResidentMemoryBytes))
		}
		fmt.Printf("\n%d to stop, %d protected\n", len(candidates), len(skipped))
		return nil
	}

	if err := a.observe(ctx); err != nil {
		return err
	}
	result, err := a.booster.Boost(ctx)
	if err != nil {
		return fmt.Errorf("boost failed: %w", err)
	}

	fmt.Println("\n=== Boost ===")
	for _, k := range result.Kills {
		fmt.Printf("  %-50s %s\n", k.Package, k.Outcome)
	}
	for _, e := range result.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	stopped := 0
	for _, k := range result.Kills {
		if k.Stopped() {
			stopped++
		}
	}
	fmt.Printf("\nStopped %d of %d, %d protected, took %s\n",
		stopped, len(result.Candidates), len(result.Skipped),
		time.Duration(result.DurationMs)*time.Millisecond)
	fmt.Println("=============")
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.BlockedPackages) == 0 {
		return fmt.Errorf("no blocked_packages configured")
	}

	logger := createFileLogger(cfg.LogPath(), cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect", zap.Error(err))
		return err
	}
	defer a.Close()

	if err := a.observe(ctx); err != nil {
		return err
	}

	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{
			SweepInterval:     cfg.WatchInterval,
			HeartbeatInterval: daemon.DefaultWatcherConfig().HeartbeatInterval,
			HotThreshold:      daemon.DefaultWatcherConfig().HotThreshold,
		},
		a.booster,
		policy.NewPackageList(cfg.BlockedPackages),
		infra.NewThermalProbe(a.adb),
		infra.NewHostAdbServer(infra.NewProcessManager()),
		logger,
	)

	fmt.Printf("Watching %d blocked packages on %s, logging to %s\n",
		len(cfg.BlockedPackages), a.device.Model, cfg.LogPath())

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("received shutdown signal")
		return nil
	}
	return err
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	history, err := infra.OpenHistory(cfg.HistoryPath(), infra.NewHistoryKeyFile(cfg.KeyPath()))
	if err != nil {
		return err
	}
	defer history.Close()

	results, err := history.Recent(historyLimit)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No kill attempts recorded.")
		return nil
	}
	fmt.Printf("%-20s %-45s %-18s %8s\n", "STARTED", "PACKAGE", "OUTCOME", "TOOK")
	for _, r := range results {
		fmt.Printf("%-20s %-45s %-18s %7dms\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Package, r.Outcome, r.DurationMs)
	}
	return nil
}

func runTemp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createConsoleLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	adb, err := infra.NewAdbClient(infra.AdbOptions{
		Path:           cfg.Adb.Path,
		Serial:         cfg.Adb.Serial,
		CommandTimeout: cfg.Adb.CommandTimeout,
	}, logger)
	if err != nil {
		return err
	}

	temp, err := infra.NewThermalProbe(adb).CPUTemperature(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%d°C\n", temp)
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createConsoleLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	tapper := infra.NewLoggingTapper(logger)
	src, err := infra.OpenReplay(args[0], tapper, replayDelay, logger)
	if err != nil {
		return err
	}

	resolver, err := infra.NewCatalogResolver(replayLocale)
	if err != nil {
		return err
	}
	device := domain.DeviceInfo{SDKLevel: replaySDK, Model: replayModel, Locale: replayLocale}
	profile := variant.DefaultProfile().Extend(cfg.Variant.Extension())
	session := forcestop.NewSession(variant.NewSelector(device, profile, resolver, logger), logger)

	ctx, cancel := signalContext()
	defer cancel()

	events, err := src.Events(ctx)
	if err != nil {
		return err
	}
	session.Arm(replayPkg)
	if err := session.Run(ctx, events); err != nil {
		return err
	}

	st, _ := session.Current()
	fmt.Printf("%s: %s after %d taps\n", st.PackageName, st.Status, tapper.Count())
	if st.Status != domain.StatusDone {
		return fmt.Errorf("recording did not complete the force stop")
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := createConsoleLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()

	fmt.Println("\n=== droidmon doctor ===")

	pids, err := infra.NewHostAdbServer(infra.NewProcessManager()).ServerPIDs()
	switch {
	case err != nil:
		fmt.Printf("adb server:   unknown (%v)\n", err)
	case len(pids) == 0:
		fmt.Println("adb server:   not running (starts on first command)")
	default:
		fmt.Printf("adb server:   running (pid %v)\n", pids)
	}

	adb, err := infra.NewAdbClient(infra.AdbOptions{
		Path:           cfg.Adb.Path,
		Serial:         cfg.Adb.Serial,
		CommandTimeout: cfg.Adb.CommandTimeout,
	}, logger)
	if err != nil {
		return err
	}
	serials, err := adb.Devices(ctx)
	if err != nil {
		return fmt.Errorf("adb unusable (%s): %w", adb.Path(), err)
	}
	fmt.Printf("devices:      %v\n", serials)
	if len(serials) == 0 {
		return domain.ErrNoDevice
	}

	device, err := infra.NewDeviceInspector(adb, adb.Serial()).Inspect(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("device:       %s %s (%s), API %d\n", device.Manufacturer, device.Model, device.Serial, device.SDKLevel)
	fmt.Printf("variant:      %s\n", variant.KindFor(device.SDKLevel))

	resolver, err := infra.NewCatalogResolver(device.Locale)
	if err != nil {
		return err
	}
	label, err := resolver.Resolve(ctx, domain.SettingsPackage, variant.DefaultProfile().ForceStopKeys[0])
	if err != nil {
		return err
	}
	fmt.Printf("locale:       %s (catalog %s, label %q)\n", device.Locale, resolver.Language(), label)

	if temp, err := infra.NewThermalProbe(adb).CPUTemperature(ctx); err == nil {
		fmt.Printf("cpu temp:     %d°C\n", temp)
	} else {
		fmt.Printf("cpu temp:     %v\n", err)
	}

	fmt.Printf("history:      %s\n", cfg.HistoryPath())
	fmt.Println("=======================")
	return nil
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	return fmt.Sprintf("%.1fM", float64(n)/mb)
}

func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// createConsoleLogger logs human readable lines to stderr.
func createConsoleLogger(level string) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// createFileLogger writes JSON lines to path for the long running watcher.
func createFileLogger(path, level string) *zap.Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		logger, _ := zap.NewProduction()
		return logger
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("droidmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

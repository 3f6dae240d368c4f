// Package daemon implements the long running blocklist watcher.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/policy"
	"github.com/eliteGoblin/focusd/droid_mon/internal/usecase"
)

// ErrNothingToWatch is returned by Run when the blocklist is empty.
var ErrNothingToWatch = errors.New("blocklist is empty")

// Sweeper force stops the selected running packages.
// Implementation: usecase.BoosterImpl.
type Sweeper interface {
	Sweep(ctx context.Context, sel usecase.Selector) (*domain.BoostResult, error)
}

// WatcherConfig holds watcher configuration.
type WatcherConfig struct {
	SweepInterval     time.Duration // How often to look for blocked packages
	HeartbeatInterval time.Duration // How often to log liveness
	HotThreshold      int           // CPU temperature (C) logged as a warning, 0 disables
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		SweepInterval:     policy.DefaultWatchInterval,
		HeartbeatInterval: 5 * time.Minute,
		HotThreshold:      45,
	}
}

// WatcherStats summarises what the watcher has done so far.
type WatcherStats struct {
	Sweeps    int
	Stopped   int
	Failures  int
	LastSweep time.Time
}

// Watcher force stops blocked packages whenever they are found running.
// It also reports the device temperature and the adb server with every
// heartbeat. Thermal and adb server monitor are optional.
type Watcher struct {
	config         WatcherConfig
	sweeper        Sweeper
	blocked        *policy.PackageList
	thermal   domain.ThermalProbe
	adbServer domain.AdbServerMonitor
	logger    *zap.Logger

	mu    sync.Mutex
	stats WatcherStats
}

// NewWatcher creates a new watcher.
func NewWatcher(
	config WatcherConfig,
	sweeper Sweeper,
	blocked *policy.PackageList,
	thermal domain.ThermalProbe,
	adbServer domain.AdbServerMonitor,
	logger *zap.Logger,
) *Watcher {
	defaults := DefaultWatcherConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	return &Watcher{
		config:    config,
		sweeper:   sweeper,
		blocked:   blocked,
		thermal:   thermal,
		adbServer: adbServer,
		logger:    logger,
	}
}

// Run starts the watcher loop.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.blocked == nil || w.blocked.Len() == 0 {
		return ErrNothingToWatch
	}

	w.logger.Info("watcher started",
		zap.Int("blocked", w.blocked.Len()),
		zap.Duration("interval", w.config.SweepInterval))

	// Sweep immediately on startup
	w.runSweep(ctx)
	w.heartbeat(ctx)

	sweepTicker := time.NewTicker(w.config.SweepInterval)
	heartbeatTicker := time.NewTicker(w.config.HeartbeatInterval)
	defer func() {
		sweepTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return ctx.Err()

		case <-sweepTicker.C:
			w.runSweep(ctx)

		case <-heartbeatTicker.C:
			w.heartbeat(ctx)
		}
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Blocked reports whether p is on the blocklist.
func (w *Watcher) Blocked(p domain.ProcessInfo) bool {
	return w.blocked.Matches(p.PackageName)
}

// runSweep force stops every running blocked package.
func (w *Watcher) runSweep(ctx context.Context) {
	w.logger.Debug("running sweep")

	result, err := w.sweeper.Sweep(ctx, w.Blocked)

	w.mu.Lock()
	w.stats.Sweeps++
	w.stats.LastSweep = time.Now()
	if err != nil {
		w.stats.Failures++
	} else {
		for _, k := range result.Kills {
			if k.Stopped() {
				w.stats.Stopped++
			}
		}
		w.stats.Failures += len(result.Errors)
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("sweep failed", zap.Error(err))
		return
	}

	if len(result.Kills) > 0 {
		w.logger.Info("blocked packages stopped",
			zap.Int("found", len(result.Candidates)),
			zap.Int("attempts", len(result.Kills)),
			zap.Int("errors", len(result.Errors)))
	}
}

// heartbeat logs liveness along with the device temperature and the
// state of the host adb server.
func (w *Watcher) heartbeat(ctx context.Context) {
	stats := w.Stats()
	fields := []zap.Field{
		zap.Int("sweeps", stats.Sweeps),
		zap.Int("stopped", stats.Stopped),
		zap.Int("failures", stats.Failures),
	}

	if w.thermal != nil {
		temp, err := w.thermal.CPUTemperature(ctx)
		switch {
		case errors.Is(err, domain.ErrNoThermalSensor):
		case err != nil:
			w.logger.Debug("thermal read failed", zap.Error(err))
		default:
			fields = append(fields, zap.Int("cpu_temp_c", temp))
			if w.config.HotThreshold > 0 && temp >= w.config.HotThreshold {
				w.logger.Warn("device running hot", zap.Int("cpu_temp_c", temp))
			}
		}
	}

	if w.adbServer != nil {
		pids, err := w.adbServer.ServerPIDs()
		if err != nil {
			w.logger.Debug("adb server lookup failed", zap.Error(err))
		} else if len(pids) == 0 {
			w.logger.Warn("adb server not running")
		} else {
			fields = append(fields, zap.Ints("adb_server_pids", pids))
		}
	}

	w.logger.Info("watcher heartbeat", fields...)
}

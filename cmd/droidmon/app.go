package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/config"
	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/forcestop"
	"github.com/eliteGoblin/focusd/droid_mon/internal/infra"
	"github.com/eliteGoblin/focusd/droid_mon/internal/policy"
	"github.com/eliteGoblin/focusd/droid_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/droid_mon/internal/variant"
)

// app wires the adapters for one connected device.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	adb      *infra.AdbClient
	device   domain.DeviceInfo
	resolver *infra.CatalogResolver
	selector *variant.Selector
	session  *forcestop.Session
	source   *infra.SnapshotSource
	history  *infra.HistoryStore
	lister   *infra.AdbProcessLister
	policies domain.PolicyStore
	killer   *usecase.KillerImpl
	booster  *usecase.BoosterImpl
}

// newApp connects to the device and builds every component. Nothing
// observes the screen until observe is called.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	adb, err := infra.NewAdbClient(infra.AdbOptions{
		Path:           cfg.Adb.Path,
		Serial:         cfg.Adb.Serial,
		CommandTimeout: cfg.Adb.CommandTimeout,
		CommandsPerSec: cfg.Adb.CommandsPerSec,
	}, logger)
	if err != nil {
		return nil, err
	}

	device, err := infra.NewDeviceInspector(adb, adb.Serial()).Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect device: %w", err)
	}

	resolver, err := infra.NewCatalogResolver(device.Locale)
	if err != nil {
		return nil, err
	}

	profile := variant.DefaultProfile().Extend(cfg.Variant.Extension())
	selector := variant.NewSelector(device, profile, resolver, logger)
	session := forcestop.NewSession(selector, logger)

	history, err := infra.OpenHistory(cfg.HistoryPath(), infra.NewHistoryKeyFile(cfg.KeyPath()))
	if err != nil {
		// Kills still run without history.
		logger.Warn("kill history unavailable", zap.Error(err))
		history = nil
	}

	metadata := infra.NewPackageMetadata(adb)
	lister := infra.NewProcessLister(adb, cfg.OwnerPackage, logger)
	policies := policy.NewPolicyStore(policy.Options{
		OwnerPackage:      cfg.OwnerPackage,
		ProtectedPackages: cfg.ProtectedPackages,
		Metadata:          metadata,
		Logger:            logger,
	})

	a := &app{
		cfg:      cfg,
		logger:   logger,
		adb:      adb,
		device:   device,
		resolver: resolver,
		selector: selector,
		session:  session,
		source:   infra.NewSnapshotSource(adb, adb, cfg.Adb.SnapshotInterval, logger),
		history:  history,
		lister:   lister,
		policies: policies,
	}

	var killHistory domain.KillHistory
	if history != nil {
		killHistory = history
	}
	a.killer = usecase.NewKiller(session, infra.NewNavigator(adb, logger), killHistory, usecase.KillerOptions{
		PollInterval: cfg.Kill.PollInterval,
		Timeout:      cfg.Kill.Timeout,
	}, logger)
	a.booster = usecase.NewBooster(lister, policies, a.killer, logger)

	logger.Debug("device connected",
		zap.String("serial", device.Serial),
		zap.String("model", device.Model),
		zap.Int("sdk", device.SDKLevel),
		zap.String("locale", device.Locale),
		zap.String("catalog", resolver.Language().String()))
	return a, nil
}

// observe feeds screen snapshots to the session until ctx is done.
func (a *app) observe(ctx context.Context) error {
	events, err := a.source.Events(ctx)
	if err != nil {
		return err
	}
	go func() {
		if err := a.session.Run(ctx, events); err != nil && ctx.Err() == nil {
			a.logger.Error("event consumer stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history", zap.Error(err))
		}
	}
}

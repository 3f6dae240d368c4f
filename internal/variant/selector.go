package variant

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// Selector holds the one strategy chosen for this process. It is built
// once at startup and never reselected.
type Selector struct {
	strategy *Strategy
}

// NewSelector picks the strategy for the device's API level.
func NewSelector(info domain.DeviceInfo, profile Profile, resolver domain.StringResolver, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	kind := KindFor(info.SDKLevel)
	logger.Info("variant selected",
		zap.String("variant", kind.String()),
		zap.Int("sdk", info.SDKLevel),
		zap.String("model", info.Model))

	return &Selector{
		strategy: NewStrategy(kind, info.Model, profile, resolver, logger),
	}
}

// Kind returns the selected variant.
func (s *Selector) Kind() Kind {
	return s.held().Kind()
}

func (s *Selector) IsAppInfoScreen(className string) bool {
	return s.held().IsAppInfoScreen(className)
}

func (s *Selector) IsConfirmDialog(className string) bool {
	return s.held().IsConfirmDialog(className)
}

func (s *Selector) FindForceStopButton(ctx context.Context, root domain.UiNode) domain.UiNode {
	return s.held().FindForceStopButton(ctx, root)
}

func (s *Selector) FindConfirmButton(ctx context.Context, root domain.UiNode) domain.UiNode {
	return s.held().FindConfirmButton(ctx, root)
}

// held panics when the selector was never initialised.
func (s *Selector) held() *Strategy {
	if s == nil || s.strategy == nil {
		panic("variant: selector used before initialization")
	}
	return s.strategy
}

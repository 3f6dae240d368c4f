// Package variant picks the heuristics that find the Force Stop and Confirm
// controls on a given device, and classifies the screens they live on.
package variant

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/locator"
)

// Kind is the closed set of strategy variants.
type Kind int

const (
	// KindLegacy finds controls by localized label only; Settings on
	// these platform versions has no stable view ids.
	KindLegacy Kind = iota + 1
	// KindModern tries device overrides, known ids, labels and finally
	// the control buttons panel.
	KindModern
)

func (k Kind) String() string {
	switch k {
	case KindLegacy:
		return "legacy"
	case KindModern:
		return "modern"
	default:
		return "unknown"
	}
}

// KindFor returns the variant for an API level.
func KindFor(sdkLevel int) Kind {
	if sdkLevel >= ModernSDKLevel {
		return KindModern
	}
	return KindLegacy
}

// Strategy locates controls for one variant.
type Strategy struct {
	kind     Kind
	model    string
	profile  Profile
	resolver domain.StringResolver
	logger   *zap.Logger
}

// NewStrategy creates a strategy of the given kind. model is the device
// model, used for per-device overrides.
func NewStrategy(kind Kind, model string, profile Profile, resolver domain.StringResolver, logger *zap.Logger) *Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		kind:     kind,
		model:    model,
		profile:  profile,
		resolver: resolver,
		logger:   logger,
	}
}

// Kind returns the variant this strategy implements.
func (s *Strategy) Kind() Kind {
	return s.kind
}

// IsAppInfoScreen reports whether className is a known App Info screen.
func (s *Strategy) IsAppInfoScreen(className string) bool {
	return contains(s.profile.AppInfoClasses, className)
}

// IsConfirmDialog reports whether className is a known alert dialog.
func (s *Strategy) IsConfirmDialog(className string) bool {
	return contains(s.profile.DialogClasses, className)
}

// FindForceStopButton returns the Force Stop control, or nil.
func (s *Strategy) FindForceStopButton(ctx context.Context, root domain.UiNode) domain.UiNode {
	switch s.kind {
	case KindLegacy:
		return s.byLabel(ctx, root, s.profile.ForceStopKeys)
	case KindModern:
		return s.modernForceStop(ctx, root)
	}
	return nil
}

// FindConfirmButton returns the positive button of the confirm dialog, or nil.
func (s *Strategy) FindConfirmButton(ctx context.Context, root domain.UiNode) domain.UiNode {
	switch s.kind {
	case KindLegacy:
		return s.byLabel(ctx, root, s.profile.ConfirmKeys)
	case KindModern:
		if n := locator.FindFirstByID(root, s.profile.ConfirmIDs); n != nil {
			return n
		}
		return s.byLabel(ctx, root, s.profile.ConfirmKeys)
	}
	return nil
}

func (s *Strategy) modernForceStop(ctx context.Context, root domain.UiNode) domain.UiNode {
	if id, ok := s.profile.DeviceOverrides[s.model]; ok {
		if n := locator.FindByID(root, id); n != nil {
			s.logger.Debug("force stop found by device override",
				zap.String("model", s.model),
				zap.String("id", id))
			return n
		}
	}

	if n := locator.FindFirstByID(root, s.profile.ForceStopIDs); n != nil {
		return n
	}

	if n := s.byLabel(ctx, root, s.profile.ForceStopKeys); n != nil {
		s.logger.Debug("force stop found by label")
		return n
	}

	panel := locator.FindByID(root, s.profile.ControlPanelID)
	if panel == nil {
		return nil
	}
	n := locator.FindByID(panel, s.profile.PanelForceStopID)
	if n != nil {
		s.logger.Debug("force stop found in control buttons panel")
	}
	return n
}

func (s *Strategy) byLabel(ctx context.Context, root domain.UiNode, keys []string) domain.UiNode {
	texts := locator.LocalizedTexts(ctx, s.resolver, s.profile.SettingsPackage, keys)
	return locator.FindFirstByText(root, texts)
}

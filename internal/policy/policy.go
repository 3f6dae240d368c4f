// Package policy implements the Strategy pattern for package protection rules.
// Each rule (system apps, keyboards, launchers, ...) decides on its own
// whether a running package must never be force stopped.
package policy

import (
	"context"
	"time"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// DefaultWatchInterval is how often the watcher scans for blocked packages.
const DefaultWatchInterval = 1 * time.Minute

// AppPolicy defines the strategy interface for protecting a package.
type AppPolicy interface {
	// ID returns unique identifier (e.g., "system", "launcher").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Protects reports whether p must be left running.
	Protects(ctx context.Context, p domain.ProcessInfo) bool
}

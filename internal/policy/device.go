package policy

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// metadataTTL bounds how long a package set read from the device is reused.
const metadataTTL = 5 * time.Minute

// cachedSet loads a package set from the device and reuses it for
// metadataTTL. A failed load protects nothing and is retried next time.
type cachedSet struct {
	load   func(ctx context.Context) ([]string, error)
	logger *zap.Logger
	name   string

	mu       sync.Mutex
	packages map[string]struct{}
	loadedAt time.Time
}

func (c *cachedSet) contains(ctx context.Context, pkg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.packages == nil || time.Since(c.loadedAt) > metadataTTL {
		list, err := c.load(ctx)
		if err != nil {
			c.logger.Warn("failed to load package set",
				zap.String("set", c.name),
				zap.Error(err))
			return false
		}
		c.packages = make(map[string]struct{}, len(list))
		for _, p := range list {
			c.packages[p] = struct{}{}
		}
		c.loadedAt = time.Now()
	}
	_, ok := c.packages[pkg]
	return ok
}

// InputMethodPolicy protects keyboards; killing the active one leaves the
// device without text input.
type InputMethodPolicy struct {
	set *cachedSet
}

// NewInputMethodPolicy creates the input method policy.
func NewInputMethodPolicy(meta domain.ApplicationMetadata, logger *zap.Logger) *InputMethodPolicy {
	return &InputMethodPolicy{set: &cachedSet{
		load:   meta.InputMethodPackages,
		logger: logger,
		name:   "input_methods",
	}}
}

func (p *InputMethodPolicy) ID() string   { return "input_method" }
func (p *InputMethodPolicy) Name() string { return "Input methods" }

func (p *InputMethodPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	return p.set.contains(ctx, proc.PackageName)
}

// LauncherPolicy protects home screen apps. Settings also answers the HOME
// intent on some builds and is never treated as a launcher.
type LauncherPolicy struct {
	set *cachedSet
}

// NewLauncherPolicy creates the launcher policy.
func NewLauncherPolicy(meta domain.ApplicationMetadata, logger *zap.Logger) *LauncherPolicy {
	return &LauncherPolicy{set: &cachedSet{
		load:   meta.HomePackages,
		logger: logger,
		name:   "launchers",
	}}
}

func (p *LauncherPolicy) ID() string   { return "launcher" }
func (p *LauncherPolicy) Name() string { return "Launchers" }

func (p *LauncherPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	if proc.PackageName == domain.SettingsPackage {
		return false
	}
	return p.set.contains(ctx, proc.PackageName)
}

package policy

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// SystemPolicy protects packages that ship with the system image. With
// device metadata it also asks the package manager about packages the
// process list did not flag, and protects them when the answer is unknown.
type SystemPolicy struct {
	metadata domain.ApplicationMetadata
	logger   *zap.Logger

	mu      sync.Mutex
	answers map[string]systemAnswer
}

type systemAnswer struct {
	system bool
	at     time.Time
}

// NewSystemPolicy creates the system app policy from the process list flag only.
func NewSystemPolicy() *SystemPolicy {
	return &SystemPolicy{}
}

// NewDeviceSystemPolicy creates the system app policy backed by meta.
func NewDeviceSystemPolicy(meta domain.ApplicationMetadata, logger *zap.Logger) *SystemPolicy {
	return &SystemPolicy{
		metadata: meta,
		logger:   logger,
		answers:  make(map[string]systemAnswer),
	}
}

func (p *SystemPolicy) ID() string   { return "system" }
func (p *SystemPolicy) Name() string { return "System apps" }

func (p *SystemPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	if proc.IsSystemApp || p.metadata == nil {
		return proc.IsSystemApp
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.answers[proc.PackageName]; ok && time.Since(a.at) <= metadataTTL {
		return a.system
	}
	system, err := p.metadata.IsSystemApp(ctx, proc.PackageName)
	if err != nil {
		p.logger.Warn("failed to check system package, protecting it",
			zap.String("package", proc.PackageName),
			zap.Error(err))
		return true
	}
	p.answers[proc.PackageName] = systemAnswer{system: system, at: time.Now()}
	return system
}

// OwnerPolicy protects the companion package that runs this tool on the
// device, if any.
type OwnerPolicy struct {
	ownerPackage string
}

// NewOwnerPolicy creates the owner policy. ownerPackage may be empty.
func NewOwnerPolicy(ownerPackage string) *OwnerPolicy {
	return &OwnerPolicy{ownerPackage: ownerPackage}
}

func (p *OwnerPolicy) ID() string   { return "owner" }
func (p *OwnerPolicy) Name() string { return "Owner app" }

func (p *OwnerPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	if proc.IsOwnerApp {
		return true
	}
	return p.ownerPackage != "" && proc.PackageName == p.ownerPackage
}

// AlarmPolicy protects clock and alarm apps, recognised by package name.
type AlarmPolicy struct{}

// NewAlarmPolicy creates the alarm policy.
func NewAlarmPolicy() *AlarmPolicy {
	return &AlarmPolicy{}
}

func (p *AlarmPolicy) ID() string   { return "alarm" }
func (p *AlarmPolicy) Name() string { return "Clock and alarm apps" }

func (p *AlarmPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	name := strings.ToLower(proc.PackageName)
	return strings.Contains(name, "clock") || strings.Contains(name, "alarm")
}

// ListedPolicy protects the packages named in the configuration.
// Entries may be glob patterns such as "com.whatsapp*".
type ListedPolicy struct {
	list *PackageList
}

// NewListedPolicy creates a policy for the given packages.
func NewListedPolicy(packages []string) *ListedPolicy {
	return &ListedPolicy{list: NewPackageList(packages)}
}

func (p *ListedPolicy) ID() string   { return "listed" }
func (p *ListedPolicy) Name() string { return "Protected by configuration" }

func (p *ListedPolicy) Protects(ctx context.Context, proc domain.ProcessInfo) bool {
	return p.list.Matches(proc.PackageName)
}

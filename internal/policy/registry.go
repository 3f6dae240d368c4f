package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// Options configures the default registry.
type Options struct {
	OwnerPackage      string
	ProtectedPackages []string
	Metadata          domain.ApplicationMetadata // nil skips device backed policies
	Logger            *zap.Logger
}

// Registry holds all protection policies in evaluation order.
type Registry struct {
	order    []string
	policies map[string]AppPolicy
}

// NewRegistry creates a registry with all default policies.
func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	system := NewSystemPolicy()
	if opts.Metadata != nil {
		system = NewDeviceSystemPolicy(opts.Metadata, logger)
	}

	r := NewRegistryWithPolicies(
		system,
		NewOwnerPolicy(opts.OwnerPackage),
		NewListedPolicy(opts.ProtectedPackages),
		NewAlarmPolicy(),
	)
	if opts.Metadata != nil {
		r.Register(NewInputMethodPolicy(opts.Metadata, logger))
		r.Register(NewLauncherPolicy(opts.Metadata, logger))
	}
	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...AppPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]AppPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry. Re-registering an ID replaces
// the policy but keeps its position.
func (r *Registry) Register(p AppPolicy) {
	if _, ok := r.policies[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (AppPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// GetAll returns all registered policies in evaluation order.
func (r *Registry) GetAll() []AppPolicy {
	result := make([]AppPolicy, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.policies[id])
	}
	return result
}

// List returns all policy IDs in evaluation order.
func (r *Registry) List() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// RegistryPolicyStore adapts Registry to implement domain.PolicyStore interface.
type RegistryPolicyStore struct {
	registry *Registry
}

// NewPolicyStore creates a PolicyStore backed by the default Registry.
func NewPolicyStore(opts Options) domain.PolicyStore {
	return &RegistryPolicyStore{registry: NewRegistry(opts)}
}

// NewPolicyStoreWithRegistry creates a PolicyStore backed by r.
func NewPolicyStoreWithRegistry(r *Registry) *RegistryPolicyStore {
	return &RegistryPolicyStore{registry: r}
}

func (s *RegistryPolicyStore) Protects(ctx context.Context, p domain.ProcessInfo) (string, bool) {
	for _, ap := range s.registry.GetAll() {
		if ap.Protects(ctx, p) {
			return ap.ID(), true
		}
	}
	return "", false
}

func (s *RegistryPolicyStore) List() []string {
	return s.registry.List()
}

// Ensure RegistryPolicyStore implements domain.PolicyStore.
var _ domain.PolicyStore = (*RegistryPolicyStore)(nil)

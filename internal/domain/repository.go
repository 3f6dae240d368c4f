package domain

import "context"

// Navigator opens Settings screens on the device.
// Implementation: `am start` over adb.
type Navigator interface {
	// OpenAppInfo launches the App Info screen for pkg with
	// clear-task, clear-top, exclude-from-recents and no-history flags.
	OpenAppInfo(ctx context.Context, pkg string) error
}

// EventSource produces UI events, one at a time, in delivery order.
// Implementation: uiautomator snapshots over adb, or a recorded file.
type EventSource interface {
	// Events starts producing. The channel is closed when ctx is done
	// or the source is exhausted.
	Events(ctx context.Context) (<-chan UiEvent, error)
}

// ProcessLister enumerates running application packages on the device.
type ProcessLister interface {
	// ListRunning returns one entry per package, system apps included.
	ListRunning(ctx context.Context) ([]ProcessInfo, error)
}

// StringResolver resolves a string resource key to the text a package
// shows for the device locale.
type StringResolver interface {
	// Resolve returns an error when the key has no text for pkg.
	Resolve(ctx context.Context, pkg, key string) (string, error)
}

// DeviceInspector reads device properties.
type DeviceInspector interface {
	Inspect(ctx context.Context) (DeviceInfo, error)
}

// ApplicationMetadata answers questions about installed packages.
// Implementations are per platform; none of them rely on reflection.
type ApplicationMetadata interface {
	// IsSystemApp reports whether pkg ships with the system image.
	// Unknown packages are reported as system apps.
	IsSystemApp(ctx context.Context, pkg string) (bool, error)

	// InputMethodPackages returns packages that provide a keyboard.
	InputMethodPackages(ctx context.Context) ([]string, error)

	// HomePackages returns packages that provide a launcher.
	HomePackages(ctx context.Context) ([]string, error)
}

// ProcessManager handles host OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// PolicyStore decides which packages must never be force stopped.
type PolicyStore interface {
	// Protects returns the ID of the first policy that protects p.
	Protects(ctx context.Context, p ProcessInfo) (policyID string, protected bool)

	// List returns IDs of all registered policies.
	List() []string
}

// Killer force stops a single package.
type Killer interface {
	KillApp(ctx context.Context, target TargetRequest) (KillResult, error)
}

// Booster enumerates running packages and force stops the unprotected ones.
type Booster interface {
	Boost(ctx context.Context) (*BoostResult, error)
}

// KillHistory persists kill attempts.
// Implementation: SQLCipher encrypted SQLite database.
type KillHistory interface {
	// Record stores one attempt.
	Record(result KillResult) error

	// Recent returns the newest attempts first.
	Recent(limit int) ([]KillResult, error)

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider holds the kill history encryption key.
// Implementation: infra.HistoryKeyFile.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// AdbServerMonitor reports the adb server running on this host.
// Implementation: infra.HostAdbServer.
type AdbServerMonitor interface {
	// ServerPIDs returns the PIDs of running adb servers, empty if none.
	ServerPIDs() ([]int, error)
}

// ThermalProbe reads the device CPU temperature.
type ThermalProbe interface {
	// CPUTemperature returns whole degrees Celsius.
	CPUTemperature(ctx context.Context) (int, error)
}

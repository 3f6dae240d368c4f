package infra

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

var (
	serialPattern  = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)
	packagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)+$`)
)

// ValidatePackageName rejects names that are not Java package names.
// Names reach the device shell, so nothing else is allowed through.
func ValidatePackageName(pkg string) error {
	if !packagePattern.MatchString(pkg) {
		return fmt.Errorf("invalid package name %q", pkg)
	}
	return nil
}

// CommandRunner runs a host command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ShellRunner runs a command in the device shell.
// Implementation: AdbClient.
type ShellRunner interface {
	Shell(ctx context.Context, args ...string) (string, error)
}

// AdbOptions configures an AdbClient.
type AdbOptions struct {
	Path           string
	Serial         string
	CommandTimeout time.Duration
	CommandsPerSec float64 // 0 disables throttling
	Runner         CommandRunner
}

// AdbClient talks to one device through the adb binary.
type AdbClient struct {
	path    string
	serial  string
	timeout time.Duration
	runner  CommandRunner
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAdbClient creates a client. An empty serial lets adb pick the only
// connected device.
func NewAdbClient(opts AdbOptions, logger *zap.Logger) (*AdbClient, error) {
	if opts.Serial != "" && !serialPattern.MatchString(opts.Serial) {
		return nil, fmt.Errorf("invalid device serial %q", opts.Serial)
	}
	if opts.Path == "" {
		opts.Path = "adb"
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.CommandsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.CommandsPerSec), 1)
	}

	return &AdbClient{
		path:    opts.Path,
		serial:  opts.Serial,
		timeout: opts.CommandTimeout,
		runner:  opts.Runner,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Serial returns the configured device serial, possibly empty.
func (c *AdbClient) Serial() string {
	return c.serial
}

// Path returns the adb binary in use.
func (c *AdbClient) Path() string {
	return c.path
}

// Run executes an adb subcommand against the device.
func (c *AdbClient) Run(ctx context.Context, args ...string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	full := args
	if c.serial != "" {
		full = append([]string{"-s", c.serial}, args...)
	}

	out, err := c.runner.Run(ctx, c.path, full...)
	if err != nil {
		text := strings.TrimSpace(string(out))
		if isNoDevice(text) {
			return "", fmt.Errorf("%w: %s", domain.ErrNoDevice, text)
		}
		return "", fmt.Errorf("adb %s: %w, output: %s", strings.Join(args, " "), err, text)
	}
	return string(bytes.TrimSpace(out)), nil
}

// Shell runs args in the device shell.
func (c *AdbClient) Shell(ctx context.Context, args ...string) (string, error) {
	return c.Run(ctx, append([]string{"shell"}, args...)...)
}

// Tap injects a tap at screen coordinates.
func (c *AdbClient) Tap(ctx context.Context, x, y int) error {
	_, err := c.Shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	if err != nil {
		return fmt.Errorf("tap (%d,%d): %w", x, y, err)
	}
	c.logger.Debug("tap", zap.Int("x", x), zap.Int("y", y))
	return nil
}

// Devices lists serials of devices in the "device" state.
func (c *AdbClient) Devices(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, c.path, "devices")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return parseDevices(string(out)), nil
}

func parseDevices(out string) []string {
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}

func isNoDevice(out string) bool {
	return strings.Contains(out, "no devices/emulators found") ||
		strings.Contains(out, "device offline") ||
		(strings.Contains(out, "device '") && strings.Contains(out, "' not found"))
}

// parsePackageList parses `pm list packages` output.
func parsePackageList(out string) []string {
	var pkgs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if pkg, ok := strings.CutPrefix(line, "package:"); ok && pkg != "" {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}

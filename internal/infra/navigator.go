package infra

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

const (
	actionAppDetails = "android.settings.APPLICATION_DETAILS_SETTINGS"

	flagActivityClearTask          = 0x00008000
	flagActivityExcludeFromRecents = 0x00800000
	flagActivityClearTop           = 0x04000000
	flagActivityNoHistory          = 0x40000000

	appInfoFlags = flagActivityClearTask | flagActivityClearTop |
		flagActivityExcludeFromRecents | flagActivityNoHistory
)

// AdbNavigator implements domain.Navigator with `am start`.
type AdbNavigator struct {
	shell  ShellRunner
	logger *zap.Logger
}

// NewNavigator creates a navigator.
func NewNavigator(shell ShellRunner, logger *zap.Logger) *AdbNavigator {
	return &AdbNavigator{shell: shell, logger: logger}
}

// OpenAppInfo launches the App Info screen for pkg.
func (n *AdbNavigator) OpenAppInfo(ctx context.Context, pkg string) error {
	if err := ValidatePackageName(pkg); err != nil {
		return err
	}

	out, err := n.shell.Shell(ctx, "am", "start",
		"-a", actionAppDetails,
		"-d", "package:"+pkg,
		"-f", fmt.Sprintf("0x%08x", appInfoFlags))
	if err != nil {
		return fmt.Errorf("open app info for %s: %w", pkg, err)
	}

	// am exits 0 even when the intent cannot be delivered.
	if strings.Contains(out, "Error:") || strings.Contains(out, "Exception") {
		return fmt.Errorf("open app info for %s: %s", pkg, firstLine(out))
	}

	n.logger.Debug("app info opened", zap.String("package", pkg))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// Ensure AdbNavigator implements domain.Navigator.
var _ domain.Navigator = (*AdbNavigator)(nil)

package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// AdbDeviceInspector implements domain.DeviceInspector with getprop.
type AdbDeviceInspector struct {
	shell  ShellRunner
	serial string
}

// NewDeviceInspector creates an inspector. serial is reported when the
// device does not expose ro.serialno.
func NewDeviceInspector(shell ShellRunner, serial string) *AdbDeviceInspector {
	return &AdbDeviceInspector{shell: shell, serial: serial}
}

// Inspect reads the device properties.
func (d *AdbDeviceInspector) Inspect(ctx context.Context) (domain.DeviceInfo, error) {
	out, err := d.shell.Shell(ctx, "getprop")
	if err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("getprop: %w", err)
	}
	props := parseGetprop(out)

	sdk, err := strconv.Atoi(props["ro.build.version.sdk"])
	if err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("parse sdk level %q: %w", props["ro.build.version.sdk"], err)
	}

	info := domain.DeviceInfo{
		Serial:       props["ro.serialno"],
		Model:        props["ro.product.model"],
		Manufacturer: props["ro.product.manufacturer"],
		SDKLevel:     sdk,
		Locale:       deviceLocale(props),
	}
	if info.Serial == "" {
		info.Serial = d.serial
	}
	return info, nil
}

// parseGetprop parses lines of the form "[key]: [value]".
func parseGetprop(out string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		parts := strings.SplitN(line, "]: [", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimPrefix(parts[0], "[")
		props[key] = strings.TrimSuffix(parts[1], "]")
	}
	return props
}

// deviceLocale returns a BCP 47 tag. Newer releases keep it in
// persist.sys.locale; older ones split language and country.
func deviceLocale(props map[string]string) string {
	for _, key := range []string{"persist.sys.locale", "ro.product.locale"} {
		if v := props[key]; v != "" {
			return v
		}
	}
	lang := props["persist.sys.language"]
	if lang == "" {
		lang = props["ro.product.locale.language"]
	}
	country := props["persist.sys.country"]
	if country == "" {
		country = props["ro.product.locale.region"]
	}
	switch {
	case lang == "":
		return "en-US"
	case country == "":
		return lang
	default:
		return lang + "-" + country
	}
}

// Ensure AdbDeviceInspector implements domain.DeviceInspector.
var _ domain.DeviceInspector = (*AdbDeviceInspector)(nil)

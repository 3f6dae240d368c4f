package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// thermalPaths are the sysfs files vendors expose the CPU temperature in,
// most specific first.
var thermalPaths = []string{
	"/sys/class/thermal/thermal_zone1/temp",
	"/sys/devices/virtual/thermal/thermal_zone1/temp",
	"/sys/devices/system/cpu/cpu0/cpufreq/cpu_temp",
	"/sys/devices/system/cpu/cpu0/cpufreq/FakeShmoo_cpu_temp",
	"/sys/class/i2c-adapter/i2c-4/4-004c/temperature",
	"/sys/devices/platform/tegra-i2c.3/i2c-4/4-004c/temperature",
	"/sys/devices/platform/omap/omap_temp_sensor.0/temperature",
	"/sys/devices/platform/tegra_tmon/temp1_input",
	"/sys/kernel/debug/tegra_thermal/temp_tj",
	"/sys/devices/platform/s5p-tmu/temperature",
	"/sys/class/hwmon/hwmon0/device/temp1_input",
	"/sys/devices/platform/s5p-tmu/curr_temp",
	"/sys/htc/cpu_temp",
	"/sys/devices/platform/tegra-i2c.3/i2c-4/4-004c/ext_temperature",
	"/sys/devices/platform/tegra-tsensor/tsensor_temperature",
	"/sys/class/hwmon/hwmon1/device/soc_temp_input",
	"/sys/class/hwmon/hwmon2/device/soc_temp_input",
	"/sys/class/thermal/thermal_zone0/temp",
	"/sys/devices/virtual/thermal/thermal_zone0/temp",
}

// AdbThermalProbe implements domain.ThermalProbe by reading sysfs over adb.
type AdbThermalProbe struct {
	shell ShellRunner
}

// NewThermalProbe creates a probe.
func NewThermalProbe(shell ShellRunner) *AdbThermalProbe {
	return &AdbThermalProbe{shell: shell}
}

// CPUTemperature returns the first readable sensor in whole degrees Celsius.
func (p *AdbThermalProbe) CPUTemperature(ctx context.Context) (int, error) {
	// cat keeps going past unreadable files, so one round trip covers all
	// paths and the output keeps their order.
	out, err := p.shell.Shell(ctx, "cat "+strings.Join(thermalPaths, " ")+" 2>/dev/null; true")
	if err != nil {
		return 0, fmt.Errorf("read thermal sensors: %w", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if c, ok := parseCelsius(line); ok {
			return c, nil
		}
	}
	return 0, domain.ErrNoThermalSensor
}

// parseCelsius accepts millidegrees (most kernels) or whole degrees.
func parseCelsius(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if v >= 1000 {
		v /= 1000
	}
	return int(v), true
}

// Ensure AdbThermalProbe implements domain.ThermalProbe.
var _ domain.ThermalProbe = (*AdbThermalProbe)(nil)

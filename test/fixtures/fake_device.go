// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/droid_mon/internal/uitree/uitreetest"
)

const (
	launcherFocus = "  mCurrentFocus=Window{5e1d0a2 u0 com.android.launcher3/com.android.launcher3.uioverrides.QuickstepLauncher}"
	appInfoFocus  = "  mCurrentFocus=Window{8f3b2a1 u0 com.android.settings/com.android.settings.applications.InstalledAppDetailsTop}"
)

// App is one installed package on the fake device.
type App struct {
	Package string
	RSSKB   int64
	System  bool
	Running bool
}

// Rect is a tappable area in screen pixels.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) contains(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

type screen int

const (
	screenLauncher screen = iota
	screenAppInfo
	screenDialog
)

// FakeDevice simulates the adb shell of a phone running stock Settings.
// It answers the commands droidmon sends and reacts to taps the way the
// App Info screen and its confirmation dialog do. After a confirmed stop
// the App Info screen stays up with its force stop button disabled.
type FakeDevice struct {
	SDK          int
	Model        string
	Locale       string
	AppInfoDump  string
	ForceStopHit Rect
	ConfirmHit   Rect
	IMEs         []string
	Homes        []string
	// Unresponsive devices ignore every tap.
	Unresponsive bool

	mu     sync.Mutex
	apps   map[string]*App
	screen screen
	target string
	taps   int
}

// NewFakeDevice creates a Pixel-like device on API 30 showing the launcher.
func NewFakeDevice(apps ...App) *FakeDevice {
	d := &FakeDevice{
		SDK:          30,
		Model:        "Pixel 7",
		Locale:       "en-US",
		AppInfoDump:  uitreetest.StockAppInfo,
		ForceStopHit: Rect{540, 300, 1000, 420},
		ConfirmHit:   Rect{600, 1100, 900, 1200},
		apps:         make(map[string]*App),
	}
	for i := range apps {
		a := apps[i]
		d.apps[a.Package] = &a
	}
	return d
}

// Running reports whether pkg has a live process.
func (d *FakeDevice) Running(pkg string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.apps[pkg]
	return ok && a.Running
}

// Start launches pkg.
func (d *FakeDevice) Start(pkg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.apps[pkg]; ok {
		a.Running = true
	}
}

// Taps returns the number of taps received.
func (d *FakeDevice) Taps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.taps
}

// Tap implements uitree.Tapper.
func (d *FakeDevice) Tap(ctx context.Context, x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taps++
	if d.Unresponsive {
		return nil
	}

	switch d.screen {
	case screenAppInfo:
		if a := d.apps[d.target]; a != nil && a.Running && d.ForceStopHit.contains(x, y) {
			d.screen = screenDialog
		}
	case screenDialog:
		if d.ConfirmHit.contains(x, y) {
			d.apps[d.target].Running = false
			d.screen = screenAppInfo
		}
	}
	return nil
}

// Shell implements infra.ShellRunner.
func (d *FakeDevice) Shell(ctx context.Context, args ...string) (string, error) {
	cmd := strings.Join(args, " ")

	switch {
	case cmd == "getprop":
		return d.getprop(), nil
	case strings.HasPrefix(cmd, "am start"):
		return d.startAppInfo(cmd)
	case cmd == "dumpsys window | grep mCurrentFocus":
		return d.focus(), nil
	case strings.HasPrefix(cmd, "uiautomator dump"):
		return d.dump(), nil
	case cmd == "ps -A -o PID,RSS,NAME":
		return d.ps(), nil
	case cmd == "pm list packages":
		return d.packages(func(*App) bool { return true }), nil
	case cmd == "pm list packages -s":
		return d.packages(func(a *App) bool { return a.System }), nil
	case cmd == "ime list -s":
		return components(d.IMEs), nil
	case strings.HasPrefix(cmd, "cmd package query-activities"):
		return components(d.Homes), nil
	case strings.HasPrefix(cmd, "cat /sys/"):
		return "41500", nil
	case strings.HasPrefix(cmd, "input tap "):
		f := strings.Fields(cmd)
		x, _ := strconv.Atoi(f[2])
		y, _ := strconv.Atoi(f[3])
		return "", d.Tap(ctx, x, y)
	}
	return "", fmt.Errorf("/system/bin/sh: %s: not found", args[0])
}

func (d *FakeDevice) getprop() string {
	return fmt.Sprintf("[ro.build.version.sdk]: [%d]\n[ro.product.model]: [%s]\n[ro.product.manufacturer]: [Google]\n[ro.serialno]: [FAKE0001]\n[persist.sys.locale]: [%s]\n",
		d.SDK, d.Model, d.Locale)
}

func (d *FakeDevice) startAppInfo(cmd string) (string, error) {
	i := strings.Index(cmd, "package:")
	if i < 0 {
		return "", fmt.Errorf("bad intent: %s", cmd)
	}
	pkg := strings.Fields(cmd[i+len("package:"):])[0]

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.apps[pkg]; !ok {
		return "Starting: Intent { act=android.settings.APPLICATION_DETAILS_SETTINGS }\nError: Activity not started, unable to resolve Intent", nil
	}
	d.screen = screenAppInfo
	d.target = pkg
	return "Starting: Intent { act=android.settings.APPLICATION_DETAILS_SETTINGS dat=package:" + pkg + " }", nil
}

func (d *FakeDevice) focus() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.screen == screenLauncher {
		return launcherFocus
	}
	return appInfoFocus
}

func (d *FakeDevice) dump() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.screen {
	case screenAppInfo:
		if a := d.apps[d.target]; a == nil || !a.Running {
			return uitreetest.DisableForceStop(d.AppInfoDump)
		}
		return d.AppInfoDump
	case screenDialog:
		return uitreetest.ConfirmDialog
	default:
		return uitreetest.EmptyScreen
	}
}

func (d *FakeDevice) ps() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	b.WriteString("  PID    RSS NAME\n    1   9876 init\n")
	for i, pkg := range d.sortedLocked() {
		a := d.apps[pkg]
		if a.Running {
			fmt.Fprintf(&b, "%5d %6d %s\n", 1000+i, a.RSSKB, a.Package)
		}
	}
	return b.String()
}

func (d *FakeDevice) packages(keep func(*App) bool) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	for _, pkg := range d.sortedLocked() {
		if keep(d.apps[pkg]) {
			b.WriteString("package:" + pkg + "\n")
		}
	}
	return b.String()
}

func (d *FakeDevice) sortedLocked() []string {
	pkgs := make([]string, 0, len(d.apps))
	for p := range d.apps {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	return pkgs
}

func components(pkgs []string) string {
	var b strings.Builder
	for _, p := range pkgs {
		b.WriteString(p + "/.Main\n")
	}
	return b.String()
}

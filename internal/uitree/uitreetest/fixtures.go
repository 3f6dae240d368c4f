// Package uitreetest provides recorded hierarchy dumps and a fake tapper
// for tests that drive the force stop flow without a device.
package uitreetest

import (
	"context"
	"strings"
	"sync"
)

// Tap is one recorded tap.
type Tap struct {
	X, Y int
}

// RecordingTapper records taps and optionally fails them.
type RecordingTapper struct {
	mu   sync.Mutex
	taps []Tap
	Err  error
}

// Tap records the tap and returns the configured error.
func (r *RecordingTapper) Tap(ctx context.Context, x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.taps = append(r.taps, Tap{X: x, Y: y})
	return nil
}

// Taps returns a copy of the recorded taps.
func (r *RecordingTapper) Taps() []Tap {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tap, len(r.taps))
	copy(out, r.taps)
	return out
}

// StockAppInfo is an AOSP App Info screen with a Force stop button at [540,300][1000,420].
const StockAppInfo = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]">
    <node index="0" text="App info" resource-id="android:id/title" class="android.widget.TextView" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[40,80][600,160]" />
    <node index="1" text="" resource-id="com.android.settings:id/control_buttons_panel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,300][1080,420]">
      <node index="0" text="Uninstall" resource-id="com.android.settings:id/left_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[80,300][540,420]" />
      <node index="1" text="Force stop" resource-id="com.android.settings:id/force_stop_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[540,300][1000,420]" />
    </node>
  </node>
</hierarchy>`

// PanelOnlyAppInfo has no known ids or labels, only the control panel
// whose left button is the force stop control.
const PanelOnlyAppInfo = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]">
    <node index="0" text="" resource-id="com.android.settings:id/control_buttons_panel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,300][1080,420]">
      <node index="0" text="&#x505C;&#x6B62;" resource-id="com.android.settings:id/left_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[0,300][540,420]" />
      <node index="1" text="&#x5378;&#x8F7D;" resource-id="com.android.settings:id/right_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[540,300][1080,420]" />
    </node>
  </node>
</hierarchy>`

// MX4AppInfo is the Meizu MX4 layout where force stop is the right button.
const MX4AppInfo = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]">
    <node index="0" text="" resource-id="com.android.settings:id/control_buttons_panel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,1700][1080,1820]">
      <node index="0" text="Uninstall" resource-id="com.android.settings:id/left_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[0,1700][540,1820]" />
      <node index="1" text="Force stop" resource-id="com.android.settings:id/right_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[540,1700][1080,1820]" />
    </node>
    <node index="1" text="Force stop" resource-id="com.android.settings:id/force_stop_button" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[0,100][1080,200]" />
  </node>
</hierarchy>`

// MIUIAppInfo is the MIUI application details screen.
const MIUIAppInfo = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.miui.securitycenter" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,2340]">
    <node index="0" text="Force stop" resource-id="miui:id/v5_icon_menu_bar_primary_item" class="android.widget.TextView" package="com.miui.securitycenter" content-desc="" clickable="true" enabled="true" bounds="[0,2100][360,2340]" />
  </node>
</hierarchy>`

// LabelOnlyAppInfo has a Force stop button without any known id.
const LabelOnlyAppInfo = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]">
    <node index="0" text="FORCE STOP" resource-id="" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[100,500][500,600]" />
  </node>
</hierarchy>`

// EmptyScreen has nothing actionable.
const EmptyScreen = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.launcher3" content-desc="" clickable="false" enabled="true" bounds="[0,0][1080,1920]" />
</hierarchy>`

// ConfirmDialog is the stock force stop confirmation with OK at [600,1100][900,1200].
const ConfirmDialog = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[60,700][1020,1220]">
    <node index="0" text="" resource-id="android:id/parentPanel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[60,700][1020,1220]">
      <node index="0" text="Force stop?" resource-id="android:id/alertTitle" class="android.widget.TextView" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[100,740][980,820]" />
      <node index="1" text="" resource-id="android:id/buttonPanel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[60,1100][1020,1220]">
        <node index="0" text="Cancel" resource-id="android:id/button2" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[300,1100][600,1200]" />
        <node index="1" text="OK" resource-id="android:id/button1" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="true" bounds="[600,1100][900,1200]" />
      </node>
    </node>
  </node>
</hierarchy>`

// DisabledConfirmDialog has an OK button that is not enabled yet.
const DisabledConfirmDialog = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="android:id/parentPanel" class="android.widget.LinearLayout" package="com.android.settings" content-desc="" clickable="false" enabled="true" bounds="[60,700][1020,1220]">
    <node index="0" text="OK" resource-id="android:id/button1" class="android.widget.Button" package="com.android.settings" content-desc="" clickable="true" enabled="false" bounds="[600,1100][900,1200]" />
  </node>
</hierarchy>`

// DisableForceStop returns dump with the force stop button greyed out, the
// way App Info shows a package that is no longer running.
func DisableForceStop(dump string) string {
	lines := strings.Split(dump, "\n")
	for i, line := range lines {
		if strings.Contains(line, ":id/force_stop_button") {
			lines[i] = strings.Replace(line, `enabled="true"`, `enabled="false"`, 1)
		}
	}
	return strings.Join(lines, "\n")
}

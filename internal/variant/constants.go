package variant

import "github.com/eliteGoblin/focusd/droid_mon/internal/domain"

// ModernSDKLevel is the first API level whose Settings app exposes stable view ids.
const ModernSDKLevel = 18

// MX4Model needs the right-hand control button instead of the usual id.
const MX4Model = "MX4"

const (
	leftButtonID          = "com.android.settings:id/left_button"
	rightButtonID         = "com.android.settings:id/right_button"
	controlButtonsPanelID = "com.android.settings:id/control_buttons_panel"
)

// Profile is the table of names that identify the App Info screen family
// across OEM skins. It is read-only once a Selector holds it.
type Profile struct {
	SettingsPackage  string
	AppInfoClasses   []string
	DialogClasses    []string
	ForceStopIDs     []string
	ForceStopKeys    []string
	ConfirmIDs       []string
	ConfirmKeys      []string
	DeviceOverrides  map[string]string // device model -> force stop button id
	ControlPanelID   string
	PanelForceStopID string
}

// DefaultProfile returns the built-in tables for stock Android, MIUI,
// HTC Sense, Meizu Flyme and Coolpad skins.
func DefaultProfile() Profile {
	return Profile{
		SettingsPackage: domain.SettingsPackage,
		AppInfoClasses: []string{
			"com.miui.appmanager.ApplicationsDetailsActivity",
			"com.android.settings.applications.InstalledAppDetailsTop",
			"com.android.settings.applications.InstalledAppDetails",
		},
		DialogClasses: []string{
			"android.app.AlertDialog",
			"miui.app.AlertDialog",
			"com.htc.widget.HtcAlertDialog",
			"com.yulong.android.view.dialog.AlertDialog",
			"androidx.appcompat.app.AlertDialog",
			"com.android.packageinstaller.UninstallerActivity",
		},
		ForceStopIDs: []string{
			"com.android.settings:id/force_stop_button",
			"miui:id/v5_icon_menu_bar_primary_item",
		},
		ForceStopKeys: []string{
			"force_stop",
			"common_force_stop",
			"finish_application",
		},
		ConfirmIDs: []string{
			"android:id/button1",
		},
		ConfirmKeys: []string{
			"dlg_ok",
			"ok",
		},
		DeviceOverrides: map[string]string{
			MX4Model: rightButtonID,
		},
		ControlPanelID:   controlButtonsPanelID,
		PanelForceStopID: leftButtonID,
	}
}

// Extension adds names to a profile, typically from the config file.
type Extension struct {
	AppInfoClasses []string
	DialogClasses  []string
	ForceStopIDs   []string
	ConfirmIDs     []string
}

// Extend returns a copy of p with ext appended after the built-in entries.
// Built-in ids keep priority in candidate order.
func (p Profile) Extend(ext Extension) Profile {
	out := p
	out.AppInfoClasses = appendUnique(clone(p.AppInfoClasses), ext.AppInfoClasses)
	out.DialogClasses = appendUnique(clone(p.DialogClasses), ext.DialogClasses)
	out.ForceStopIDs = appendUnique(clone(p.ForceStopIDs), ext.ForceStopIDs)
	out.ConfirmIDs = appendUnique(clone(p.ConfirmIDs), ext.ConfirmIDs)
	out.ForceStopKeys = clone(p.ForceStopKeys)
	out.ConfirmKeys = clone(p.ConfirmKeys)
	out.DeviceOverrides = make(map[string]string, len(p.DeviceOverrides))
	for k, v := range p.DeviceOverrides {
		out.DeviceOverrides[k] = v
	}
	return out
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}

func appendUnique(dst, extra []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range extra {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		dst = append(dst, s)
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"context"
	"errors"
	"time"
)

// SettingsPackage is the package that hosts the App Info screen.
const SettingsPackage = "com.android.settings"

var (
	// ErrEmptyPackage is returned when a kill is requested without a package name.
	ErrEmptyPackage = errors.New("package name is empty")

	// ErrBusy is returned when a kill is requested while another one is in flight.
	ErrBusy = errors.New("another force stop is in progress")

	// ErrNoDevice is returned when no adb device is reachable.
	ErrNoDevice = errors.New("no android device connected")

	// ErrNoThermalSensor is returned when none of the known sensor files is readable.
	ErrNoThermalSensor = errors.New("no readable cpu temperature sensor")
)

// TargetRequest names the package a kill attempt is aimed at.
type TargetRequest struct {
	PackageName string
}

// Validate checks the request before a kill starts.
func (t TargetRequest) Validate() error {
	if t.PackageName == "" {
		return ErrEmptyPackage
	}
	return nil
}

// ForceStopStatus is the progress of a single force stop.
// It only moves forward: WaitingForClick -> WaitingForConfirm -> Done.
type ForceStopStatus int

const (
	StatusWaitingForClick ForceStopStatus = iota
	StatusWaitingForConfirm
	StatusDone
)

func (s ForceStopStatus) String() string {
	switch s {
	case StatusWaitingForClick:
		return "waiting_for_click"
	case StatusWaitingForConfirm:
		return "waiting_for_confirm"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Next returns the status that follows s. Done has no successor.
func (s ForceStopStatus) Next() (ForceStopStatus, bool) {
	switch s {
	case StatusWaitingForClick:
		return StatusWaitingForConfirm, true
	case StatusWaitingForConfirm:
		return StatusDone, true
	default:
		return s, false
	}
}

// ForceStopState is the single shared slot describing the kill in flight.
// It is always copied as a whole so readers never see a torn pair.
type ForceStopState struct {
	PackageName string
	Status      ForceStopStatus
}

// EventType mirrors the accessibility event kinds the flow cares about.
type EventType int

const (
	EventWindowStateChanged EventType = iota + 1
	EventWindowContentChanged
	EventViewClicked
)

func (e EventType) String() string {
	switch e {
	case EventWindowStateChanged:
		return "window_state_changed"
	case EventWindowContentChanged:
		return "window_content_changed"
	case EventViewClicked:
		return "view_clicked"
	default:
		return "unknown"
	}
}

// ParseEventType maps the wire name of an event type back to its value.
// Unknown names map to zero, which every consumer ignores.
func ParseEventType(name string) EventType {
	for _, t := range []EventType{EventWindowStateChanged, EventWindowContentChanged, EventViewClicked} {
		if t.String() == name {
			return t
		}
	}
	return 0
}

// UiEvent is one observation of the device UI. It is not retained after
// it has been handled; Source is only valid for this event.
type UiEvent struct {
	Type            EventType
	ScreenClassName string
	Source          UiNode
	ObservedAt      time.Time
}

// UiNode is a handle into a snapshot of the live UI tree.
type UiNode interface {
	ResourceID() string
	Text() string
	ContentDesc() string
	ClassName() string
	Children() []UiNode
	Enabled() bool
	Clickable() bool

	// Activate performs a click on the node.
	Activate(ctx context.Context) error
}

// ProcessInfo describes one running application package.
type ProcessInfo struct {
	PackageName         string
	ResidentMemoryBytes int64
	DisplayName         string
	IsSystemApp         bool
	IsOwnerApp          bool
	PIDs                []int
}

// DeviceInfo holds the properties that drive variant selection.
type DeviceInfo struct {
	Serial       string
	Model        string
	Manufacturer string
	SDKLevel     int
	Locale       string
}

// KillOutcome classifies how a kill attempt ended.
type KillOutcome string

const (
	OutcomeStopped          KillOutcome = "stopped"
	OutcomeNavigationFailed KillOutcome = "navigation_failed"
	OutcomeTimedOut         KillOutcome = "timed_out"
	OutcomeCanceled         KillOutcome = "canceled"
)

// KillResult captures what happened during a single kill attempt.
type KillResult struct {
	ID         string
	Package    string
	Outcome    KillOutcome
	LastStatus ForceStopStatus
	StartedAt  time.Time
	DurationMs int64
}

// Stopped reports whether the force stop was confirmed.
func (r KillResult) Stopped() bool {
	return r.Outcome == OutcomeStopped
}

// BoostResult captures a whole enumerate-and-kill pass.
type BoostResult struct {
	Candidates []ProcessInfo
	Skipped    []string // Packages protected by policy
	Kills      []KillResult
	Errors     []error
	ExecutedAt time.Time
	DurationMs int64
}

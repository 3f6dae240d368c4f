// Package forcestop implements the force stop protocol: click Force Stop on
// the App Info screen, then confirm the dialog.
package forcestop

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
)

// Variant classifies screens and locates the two controls of the protocol.
// Implementation: variant.Selector.
type Variant interface {
	IsAppInfoScreen(className string) bool
	IsConfirmDialog(className string) bool
	FindForceStopButton(ctx context.Context, root domain.UiNode) domain.UiNode
	FindConfirmButton(ctx context.Context, root domain.UiNode) domain.UiNode
}

// Session owns the single force stop slot. The orchestrator arms it, the
// event consumer advances it, and observers receive every published state.
type Session struct {
	variant Variant
	logger  *zap.Logger

	mu        sync.Mutex
	state     domain.ForceStopState
	armed     bool
	observers map[int]chan domain.ForceStopState
	nextID    int
}

// NewSession creates an unarmed session.
func NewSession(v Variant, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		variant:   v,
		logger:    logger,
		observers: make(map[int]chan domain.ForceStopState),
	}
}

// Arm resets the slot to WaitingForClick for pkg. Any attempt that was in
// the slot is superseded.
func (s *Session) Arm(pkg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.ForceStopState{PackageName: pkg, Status: domain.StatusWaitingForClick}
	s.armed = true
	s.publishLocked()
}

// Disarm empties the slot; events are ignored until the next Arm.
func (s *Session) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
}

// Current returns a copy of the slot and whether it is armed.
func (s *Session) Current() (domain.ForceStopState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.armed
}

// Subscribe registers an observer. The channel always holds the most
// recent state not yet received; older undelivered states are replaced.
// The returned func unregisters the observer and is safe to call twice.
func (s *Session) Subscribe() (<-chan domain.ForceStopState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan domain.ForceStopState, 1)
	s.observers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
		})
	}
}

// ObserverCount returns the number of registered observers.
func (s *Session) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// Run consumes events one at a time, in delivery order, until ctx is done
// or the channel is closed.
func (s *Session) Run(ctx context.Context, events <-chan domain.UiEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Handle(ctx, ev)
		}
	}
}

// Handle applies one event and reports whether the slot advanced.
// Every event re-evaluates the screen it shows, so missed or repeated
// events are tolerated.
func (s *Session) Handle(ctx context.Context, ev domain.UiEvent) bool {
	cur, armed := s.Current()
	if !armed {
		return false
	}
	if ev.Type != domain.EventWindowStateChanged {
		return false
	}

	switch {
	case s.variant.IsAppInfoScreen(ev.ScreenClassName):
		if cur.Status != domain.StatusWaitingForClick {
			return false
		}
		return s.clickForceStop(ctx, cur, ev)

	case cur.Status == domain.StatusWaitingForConfirm && s.variant.IsConfirmDialog(ev.ScreenClassName):
		return s.clickConfirm(ctx, cur, ev)
	}
	return false
}

func (s *Session) clickForceStop(ctx context.Context, cur domain.ForceStopState, ev domain.UiEvent) bool {
	button := s.variant.FindForceStopButton(ctx, ev.Source)
	if button == nil {
		s.logger.Debug("force stop button not found",
			zap.String("package", cur.PackageName),
			zap.String("screen", ev.ScreenClassName))
		return false
	}
	// A stopped app keeps its App Info screen with the button greyed out.
	if !button.Enabled() || !button.Clickable() {
		s.logger.Debug("force stop button not ready",
			zap.String("package", cur.PackageName),
			zap.Bool("enabled", button.Enabled()),
			zap.Bool("clickable", button.Clickable()))
		return false
	}
	if err := button.Activate(ctx); err != nil {
		s.logger.Debug("force stop click failed",
			zap.String("package", cur.PackageName),
			zap.Error(err))
		return false
	}
	return s.advance(cur, domain.StatusWaitingForConfirm)
}

func (s *Session) clickConfirm(ctx context.Context, cur domain.ForceStopState, ev domain.UiEvent) bool {
	button := s.variant.FindConfirmButton(ctx, ev.Source)
	if button == nil {
		s.logger.Debug("confirm button not found",
			zap.String("package", cur.PackageName),
			zap.String("screen", ev.ScreenClassName))
		return false
	}
	if !button.Enabled() || !button.Clickable() {
		s.logger.Debug("confirm button not ready",
			zap.String("package", cur.PackageName),
			zap.Bool("enabled", button.Enabled()),
			zap.Bool("clickable", button.Clickable()))
		return false
	}
	if err := button.Activate(ctx); err != nil {
		s.logger.Debug("confirm click failed",
			zap.String("package", cur.PackageName),
			zap.Error(err))
		return false
	}
	return s.advance(cur, domain.StatusDone)
}

// advance moves the slot from `from` to `to` only if nothing else changed
// it while the click was in progress.
func (s *Session) advance(from domain.ForceStopState, to domain.ForceStopStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed || s.state != from {
		return false
	}
	if next, ok := from.Status.Next(); !ok || next != to {
		return false
	}
	s.state.Status = to
	s.publishLocked()

	s.logger.Info("force stop advanced",
		zap.String("package", s.state.PackageName),
		zap.String("status", to.String()))
	return true
}

// publishLocked delivers the slot to every observer without blocking.
// Callers hold s.mu, which makes this the only sender on each channel.
func (s *Session) publishLocked() {
	st := s.state
	for _, ch := range s.observers {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

package infra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/uitree"
)

const (
	dumpPath = "/data/local/tmp/droidmon_view.xml"

	platformDialogClass  = "android.app.AlertDialog"
	appCompatDialogClass = "androidx.appcompat.app.AlertDialog"
)

var focusPattern = regexp.MustCompile(`mCurrentFocus=Window\{\S+ u\d+ ([^/\s}]+)/([^\s}]+)\}`)

// SnapshotSource implements domain.EventSource by polling the focused
// window and a uiautomator dump. Every snapshot is delivered as a
// window-state-changed event, so the consumer re-evaluates the screen on
// each one.
type SnapshotSource struct {
	shell    ShellRunner
	tapper   uitree.Tapper
	interval time.Duration
	logger   *zap.Logger
}

// NewSnapshotSource creates a poller. Nodes of every snapshot tap through tapper.
func NewSnapshotSource(shell ShellRunner, tapper uitree.Tapper, interval time.Duration, logger *zap.Logger) *SnapshotSource {
	return &SnapshotSource{
		shell:    shell,
		tapper:   tapper,
		interval: interval,
		logger:   logger,
	}
}

// Events starts polling. The channel is closed when ctx is done.
func (s *SnapshotSource) Events(ctx context.Context) (<-chan domain.UiEvent, error) {
	events := make(chan domain.UiEvent)
	go s.poll(ctx, events)
	return events, nil
}

func (s *SnapshotSource) poll(ctx context.Context, events chan<- domain.UiEvent) {
	defer close(events)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ev, err := s.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("snapshot failed", zap.Error(err))
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot takes one observation of the device UI.
func (s *SnapshotSource) Snapshot(ctx context.Context) (domain.UiEvent, error) {
	focus, err := s.shell.Shell(ctx, "dumpsys window | grep mCurrentFocus")
	if err != nil {
		return domain.UiEvent{}, fmt.Errorf("read focused window: %w", err)
	}

	dump, err := s.shell.Shell(ctx, fmt.Sprintf("uiautomator dump %s >/dev/null && cat %s", dumpPath, dumpPath))
	if err != nil {
		return domain.UiEvent{}, fmt.Errorf("dump hierarchy: %w", err)
	}
	root, err := uitree.Parse([]byte(dump), s.tapper)
	if err != nil {
		return domain.UiEvent{}, err
	}

	class := FocusedClass(focus)
	if dialog := dialogClass(root); dialog != "" {
		class = dialog
	}

	return domain.UiEvent{
		Type:            domain.EventWindowStateChanged,
		ScreenClassName: class,
		Source:          root,
		ObservedAt:      time.Now(),
	}, nil
}

// FocusedClass extracts the fully qualified activity class from
// `dumpsys window` output. It returns "" when no activity has focus.
func FocusedClass(dumpsys string) string {
	m := focusPattern.FindStringSubmatch(dumpsys)
	if m == nil {
		return ""
	}
	pkg, cls := m[1], m[2]
	if strings.HasPrefix(cls, ".") {
		return pkg + cls
	}
	return cls
}

// dialogClass reports the alert dialog flavour whose panel is on screen,
// or "" when no alert dialog is showing. Dialogs share the focused window
// title of their activity, so the tree is the only reliable signal.
func dialogClass(root *uitree.Node) string {
	class := ""
	root.Walk(func(n *uitree.Node) bool {
		id := n.ResourceID()
		if !strings.HasSuffix(id, ":id/buttonPanel") && !strings.HasSuffix(id, ":id/parentPanel") {
			return true
		}
		if strings.HasPrefix(id, "android:") {
			class = platformDialogClass
		} else {
			class = appCompatDialogClass
		}
		return false
	})
	return class
}

// Ensure SnapshotSource implements domain.EventSource.
var _ domain.EventSource = (*SnapshotSource)(nil)

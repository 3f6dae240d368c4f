package infra

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/droid_mon/internal/domain"
	"github.com/eliteGoblin/focusd/droid_mon/internal/uitree"
)

// ReplaySource implements domain.EventSource from a recorded session: one
// JSON object per line with "type", "class", "at" (RFC 3339, optional) and
// "hierarchy" (a uiautomator dump).
//
//	{"type":"window_state_changed","class":"com.android.settings.applications.InstalledAppDetailsTop","hierarchy":"<?xml ..."}
type ReplaySource struct {
	data   []byte
	tapper uitree.Tapper
	delay  time.Duration
	logger *zap.Logger
}

// NewReplaySource creates a source over recorded lines. delay is the pause
// between events.
func NewReplaySource(data []byte, tapper uitree.Tapper, delay time.Duration, logger *zap.Logger) *ReplaySource {
	return &ReplaySource{data: data, tapper: tapper, delay: delay, logger: logger}
}

// OpenReplay reads a recording from path.
func OpenReplay(path string, tapper uitree.Tapper, delay time.Duration, logger *zap.Logger) (*ReplaySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return NewReplaySource(data, tapper, delay, logger), nil
}

// Decode parses every recorded event. Records that are not objects or
// whose hierarchy does not parse are skipped with a warning.
func (r *ReplaySource) Decode() []domain.UiEvent {
	var events []domain.UiEvent
	n := 0
	gjson.ForEachLine(string(r.data), func(rec gjson.Result) bool {
		n++
		ev, err := r.decode(rec)
		if err != nil {
			r.logger.Warn("skipping recorded event", zap.Int("record", n), zap.Error(err))
			return true
		}
		events = append(events, ev)
		return true
	})
	return events
}

func (r *ReplaySource) decode(rec gjson.Result) (domain.UiEvent, error) {
	if !rec.IsObject() {
		return domain.UiEvent{}, fmt.Errorf("not a JSON object")
	}

	ev := domain.UiEvent{
		Type:            domain.ParseEventType(rec.Get("type").String()),
		ScreenClassName: rec.Get("class").String(),
		ObservedAt:      time.Now(),
	}
	if at := rec.Get("at"); at.Exists() {
		if t, err := time.Parse(time.RFC3339Nano, at.String()); err == nil {
			ev.ObservedAt = t
		}
	}
	if h := rec.Get("hierarchy"); h.Exists() && h.String() != "" {
		root, err := uitree.Parse([]byte(h.String()), r.tapper)
		if err != nil {
			return domain.UiEvent{}, err
		}
		ev.Source = root
	}
	return ev, nil
}

// Events delivers the recording in order, then closes the channel.
func (r *ReplaySource) Events(ctx context.Context) (<-chan domain.UiEvent, error) {
	events := r.Decode()
	if len(events) == 0 {
		return nil, fmt.Errorf("recording has no events")
	}

	ch := make(chan domain.UiEvent)
	go func() {
		defer close(ch)
		for i, ev := range events {
			if i > 0 && r.delay > 0 {
				select {
				case <-time.After(r.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// LoggingTapper records taps instead of sending them to a device.
type LoggingTapper struct {
	logger *zap.Logger

	mu   sync.Mutex
	taps [][2]int
}

// NewLoggingTapper creates a tapper that logs every tap.
func NewLoggingTapper(logger *zap.Logger) *LoggingTapper {
	return &LoggingTapper{logger: logger}
}

func (t *LoggingTapper) Tap(ctx context.Context, x, y int) error {
	t.mu.Lock()
	t.taps = append(t.taps, [2]int{x, y})
	t.mu.Unlock()
	t.logger.Info("tap", zap.Int("x", x), zap.Int("y", y))
	return nil
}

// Count returns the number of taps so far.
func (t *LoggingTapper) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.taps)
}

// Ensure ReplaySource implements domain.EventSource.
var _ domain.EventSource = (*ReplaySource)(nil)

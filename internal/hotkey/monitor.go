// Package hotkey turns a raw key event stream into push-to-talk edges.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Edge is the direction of one raw key event.
type Edge int

const (
	EdgeDown Edge = iota + 1
	EdgeUp
)

func (e Edge) String() string {
	switch e {
	case EdgeDown:
		return "down"
	case EdgeUp:
		return "up"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// KeyEvent is one raw key transition as reported by a Source.
type KeyEvent struct {
	Key  Key
	Edge Edge
	At   time.Time
}

// Signal is a combo-level edge emitted by the Monitor.
type Signal int

const (
	SignalActivated Signal = iota + 1
	SignalDeactivated
)

func (s Signal) String() string {
	switch s {
	case SignalActivated:
		return "activated"
	case SignalDeactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Source yields raw key events in arrival order.
type Source interface {
	ReadEvent(ctx context.Context) (KeyEvent, error)
	Close() error
}

// ErrMonitorFault is matched by every MonitorFault.
var ErrMonitorFault = errors.New("hotkey monitor fault")

// MonitorFault reports that the key event source stopped delivering events.
type MonitorFault struct {
	Err error
}

func (f *MonitorFault) Error() string {
	return fmt.Sprintf("hotkey monitor fault: %v", f.Err)
}

func (f *MonitorFault) Unwrap() []error { return []error{ErrMonitorFault, f.Err} }

// Handler receives combo edges. It runs on the monitor goroutine.
type Handler func(context.Context, Signal)

// Monitor derives Activated/Deactivated edges for one Combo.
type Monitor struct {
	combo  Combo
	source Source
	logger *slog.Logger
	state  *comboState
}

func NewMonitor(combo Combo, source Source, logger *slog.Logger) *Monitor {
	return &Monitor{
		combo:  combo,
		source: source,
		logger: logger,
		state:  newComboState(combo),
	}
}

// Run reads events until ctx is cancelled (returns nil) or the source
// fails (returns a *MonitorFault).
func (m *Monitor) Run(ctx context.Context, handle Handler) error {
	if m.combo.Len() == 0 {
		return errors.New("hotkey monitor requires a non-empty combo")
	}
	m.state.reset()

	for {
		ev, err := m.source.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.log(slog.LevelError, "key event source failed", "error", err.Error())
			return &MonitorFault{Err: err}
		}

		signal, ok := m.state.apply(ev)
		if !ok {
			continue
		}
		m.log(slog.LevelDebug, "hotkey edge", "signal", signal.String(), "key", string(ev.Key), "combo", m.combo.String())
		handle(ctx, signal)
	}
}

func (m *Monitor) log(level slog.Level, msg string, attrs ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), level, msg, attrs...)
}

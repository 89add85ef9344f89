package hotkey

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	events []KeyEvent
	next   int
	err    error
	closed bool
}

func (s *scriptedSource) ReadEvent(ctx context.Context) (KeyEvent, error) {
	if s.next < len(s.events) {
		ev := s.events[s.next]
		s.next++
		return ev, nil
	}
	if s.err != nil {
		return KeyEvent{}, s.err
	}
	<-ctx.Done()
	return KeyEvent{}, ctx.Err()
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

func down(key Key) KeyEvent { return KeyEvent{Key: key, Edge: EdgeDown} }
func up(key Key) KeyEvent   { return KeyEvent{Key: key, Edge: EdgeUp} }

// collect runs a monitor over a finite script and returns emitted signals.
func collect(t *testing.T, combo Combo, events ...KeyEvent) []Signal {
	t.Helper()
	src := &scriptedSource{events: events, err: errEndOfScript}
	var got []Signal
	err := NewMonitor(combo, src, nil).Run(context.Background(), func(_ context.Context, s Signal) {
		got = append(got, s)
	})
	require.ErrorIs(t, err, errEndOfScript)
	return got
}

var errEndOfScript = errors.New("end of script")

func TestMonitorActivatesIndependentOfPressOrder(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL)

	got := collect(t, combo, down(KeyCtrlL), down(KeyAltL), up(KeyAltL))
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated}, got)

	got = collect(t, combo, down(KeyAltL), down(KeyCtrlL), up(KeyCtrlL))
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated}, got)
}

func TestMonitorSingleKeyCombo(t *testing.T) {
	got := collect(t, NewCombo(Key("F9")), down("F9"), up("F9"), down("F9"), up("F9"))
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated, SignalActivated, SignalDeactivated}, got)
}

func TestMonitorIgnoresStrayUpAndRepeat(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL)

	got := collect(t, combo,
		up(KeyAltL),
		down(KeyCtrlL), down(KeyCtrlL),
		down(KeyAltL), down(KeyAltL), down(KeyAltL),
		up(KeyAltL), up(KeyAltL),
		up(KeyCtrlL), up(KeyCtrlL),
	)
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated}, got)
}

func TestMonitorIgnoresUnrelatedKeys(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL)

	got := collect(t, combo,
		down(KeyShiftL), down(KeyCtrlL), down("A"), up("A"),
		down(KeyAltL), down("B"), up(KeyShiftL), up("B"),
		up(KeyCtrlL), up(KeyAltL),
	)
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated}, got)
}

func TestMonitorReactivatesAfterPartialRelease(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL)

	got := collect(t, combo,
		down(KeyCtrlL), down(KeyAltL),
		up(KeyAltL), down(KeyAltL),
		up(KeyCtrlL), up(KeyAltL),
	)
	require.Equal(t, []Signal{SignalActivated, SignalDeactivated, SignalActivated, SignalDeactivated}, got)
}

func TestMonitorRandomInterleavingsMatchHeldSetModel(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL, Key("1"))
	universe := []Key{KeyCtrlL, KeyAltL, Key("1"), KeyShiftL, Key("A")}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		events := make([]KeyEvent, 0, 40)
		for i := 0; i < 40; i++ {
			key := universe[rng.Intn(len(universe))]
			edge := EdgeDown
			if rng.Intn(2) == 0 {
				edge = EdgeUp
			}
			events = append(events, KeyEvent{Key: key, Edge: edge})
		}

		var want []Signal
		held := map[Key]bool{}
		active := false
		for _, ev := range events {
			if combo.Contains(ev.Key) {
				held[ev.Key] = ev.Edge == EdgeDown
			}
			all := held[KeyCtrlL] && held[KeyAltL] && held[Key("1")]
			if all && !active {
				want = append(want, SignalActivated)
			}
			if !all && active {
				want = append(want, SignalDeactivated)
			}
			active = all
		}

		got := collect(t, combo, events...)
		require.Equal(t, want, got, "round %d", round)
		for i := 1; i < len(got); i++ {
			require.NotEqual(t, got[i-1], got[i], "signals must alternate")
		}
	}
}

func TestMonitorSourceErrorIsFault(t *testing.T) {
	cause := errors.New("device unplugged")
	src := &scriptedSource{events: []KeyEvent{down(KeyCtrlL)}, err: cause}

	err := NewMonitor(NewCombo(KeyCtrlL, KeyAltL), src, nil).Run(context.Background(), func(context.Context, Signal) {})
	require.ErrorIs(t, err, ErrMonitorFault)
	require.ErrorIs(t, err, cause)

	var fault *MonitorFault
	require.True(t, errors.As(err, &fault))
	require.Contains(t, fault.Error(), "device unplugged")
}

func TestMonitorContextCancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{}

	done := make(chan error, 1)
	go func() {
		done <- NewMonitor(NewCombo(KeyCtrlL), src, nil).Run(ctx, func(context.Context, Signal) {})
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop on cancel")
	}
}

func TestMonitorRunResetsHeldState(t *testing.T) {
	combo := NewCombo(KeyCtrlL, KeyAltL)
	src := &scriptedSource{events: []KeyEvent{down(KeyCtrlL)}, err: errEndOfScript}
	monitor := NewMonitor(combo, src, nil)

	err := monitor.Run(context.Background(), func(context.Context, Signal) {})
	require.ErrorIs(t, err, errEndOfScript)

	src.events = []KeyEvent{down(KeyAltL)}
	src.next = 0
	var got []Signal
	err = monitor.Run(context.Background(), func(_ context.Context, s Signal) { got = append(got, s) })
	require.ErrorIs(t, err, errEndOfScript)
	require.Empty(t, got)
}

func TestMonitorRejectsEmptyCombo(t *testing.T) {
	err := NewMonitor(Combo{}, &scriptedSource{}, nil).Run(context.Background(), func(context.Context, Signal) {})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMonitorFault)
}

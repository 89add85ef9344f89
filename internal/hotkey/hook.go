package hotkey

import (
	"context"
	"errors"
	"sync"

	hook "github.com/robotn/gohook"
)

// HookSource reads global key events through libuiohook (X11, macOS, Windows).
type HookSource struct {
	events <-chan hook.Event
	end    func()

	closeOnce sync.Once
}

// OpenHook installs the global hook. Only one hook may be active per process.
func OpenHook() *HookSource {
	return &HookSource{events: hook.Start(), end: hook.End}
}

func (s *HookSource) ReadEvent(ctx context.Context) (KeyEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return KeyEvent{}, ctx.Err()
		case raw, ok := <-s.events:
			if !ok {
				return KeyEvent{}, errors.New("global key hook stopped")
			}
			if ev, ok := translateHookEvent(raw); ok {
				return ev, nil
			}
		}
	}
}

func (s *HookSource) Close() error {
	s.closeOnce.Do(func() {
		if s.end != nil {
			s.end()
		}
	})
	return nil
}

// translateHookEvent maps libuiohook key events. KeyHold is the physical
// press; KeyDown is the "typed" event and only counts when it carries a code.
func translateHookEvent(raw hook.Event) (KeyEvent, bool) {
	var edge Edge
	switch raw.Kind {
	case hook.KeyHold:
		edge = EdgeDown
	case hook.KeyDown:
		if raw.Keycode == 0 {
			return KeyEvent{}, false
		}
		edge = EdgeDown
	case hook.KeyUp:
		edge = EdgeUp
	default:
		return KeyEvent{}, false
	}
	return KeyEvent{Key: KeyFromUiohookCode(raw.Keycode), Edge: edge, At: raw.When}, true
}

package hotkey

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	evKey = 0x01

	keyValueUp     = 0
	keyValueDown   = 1
	keyValueRepeat = 2
)

// inputEventSize is sizeof(struct input_event): a native timeval plus
// type, code and value.
var inputEventSize = 2*(strconv.IntSize/8) + 8

var keyboardGlobs = []string{
	"/dev/input/by-path/*-event-kbd",
	"/dev/input/by-id/*-event-kbd",
}

// DiscoverKeyboards lists keyboard event devices, resolved and deduplicated.
func DiscoverKeyboards() ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, pattern := range keyboardGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			resolved, err := filepath.EvalSymlinks(match)
			if err != nil {
				continue
			}
			if _, ok := seen[resolved]; ok {
				continue
			}
			seen[resolved] = struct{}{}
			out = append(out, resolved)
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, errors.New("no keyboard event devices found under /dev/input")
	}
	return out, nil
}

// EvdevSource merges EV_KEY events from one or more Linux input devices.
type EvdevSource struct {
	readers []io.ReadCloser
	events  chan KeyEvent
	errs    chan error
	done    chan struct{}

	closeOnce sync.Once
}

// OpenEvdev opens every path for reading. Reading /dev/input usually needs
// membership in the input group.
func OpenEvdev(paths []string) (*EvdevSource, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input devices configured")
	}
	readers := make([]io.ReadCloser, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			for _, r := range readers {
				_ = r.Close()
			}
			return nil, fmt.Errorf("open input device %s: %w", path, err)
		}
		readers = append(readers, f)
	}
	return newEvdevSource(readers), nil
}

func newEvdevSource(readers []io.ReadCloser) *EvdevSource {
	s := &EvdevSource{
		readers: readers,
		events:  make(chan KeyEvent, 64),
		errs:    make(chan error, len(readers)),
		done:    make(chan struct{}),
	}
	for _, r := range readers {
		go s.readLoop(r)
	}
	return s
}

// ReadEvent blocks until the next key event, a device failure, or ctx end.
func (s *EvdevSource) ReadEvent(ctx context.Context) (KeyEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case err := <-s.errs:
		return KeyEvent{}, err
	case <-s.done:
		return KeyEvent{}, errors.New("evdev source closed")
	case <-ctx.Done():
		return KeyEvent{}, ctx.Err()
	}
}

func (s *EvdevSource) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		close(s.done)
		for _, r := range s.readers {
			if err := r.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (s *EvdevSource) readLoop(r io.Reader) {
	buf := make([]byte, inputEventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			select {
			case <-s.done:
			case s.errs <- fmt.Errorf("read input event: %w", err):
			}
			return
		}

		ev, ok := decodeInputEvent(buf)
		if !ok {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// decodeInputEvent converts one raw input_event into a KeyEvent. Non-key
// events (sync, misc, leds) report ok=false.
func decodeInputEvent(buf []byte) (KeyEvent, bool) {
	word := strconv.IntSize / 8
	var sec, usec int64
	if word == 8 {
		sec = int64(binary.NativeEndian.Uint64(buf[0:8]))
		usec = int64(binary.NativeEndian.Uint64(buf[8:16]))
	} else {
		sec = int64(int32(binary.NativeEndian.Uint32(buf[0:4])))
		usec = int64(int32(binary.NativeEndian.Uint32(buf[4:8])))
	}
	rest := buf[2*word:]
	typ := binary.NativeEndian.Uint16(rest[0:2])
	code := binary.NativeEndian.Uint16(rest[2:4])
	value := int32(binary.NativeEndian.Uint32(rest[4:8]))

	if typ != evKey {
		return KeyEvent{}, false
	}

	var edge Edge
	switch value {
	case keyValueDown, keyValueRepeat:
		edge = EdgeDown
	case keyValueUp:
		edge = EdgeUp
	default:
		return KeyEvent{}, false
	}

	return KeyEvent{
		Key:  KeyFromLinuxCode(code),
		Edge: edge,
		At:   time.Unix(sec, usec*int64(time.Microsecond)),
	}, true
}

package hotkey

import (
	"context"
	"encoding/binary"
	"io"
	"strconv"
	"testing"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/require"
)

func encodeInputEvent(sec, usec int64, typ, code uint16, value int32) []byte {
	word := strconv.IntSize / 8
	buf := make([]byte, inputEventSize)
	if word == 8 {
		binary.NativeEndian.PutUint64(buf[0:8], uint64(sec))
		binary.NativeEndian.PutUint64(buf[8:16], uint64(usec))
	} else {
		binary.NativeEndian.PutUint32(buf[0:4], uint32(sec))
		binary.NativeEndian.PutUint32(buf[4:8], uint32(usec))
	}
	rest := buf[2*word:]
	binary.NativeEndian.PutUint16(rest[0:2], typ)
	binary.NativeEndian.PutUint16(rest[2:4], code)
	binary.NativeEndian.PutUint32(rest[4:8], uint32(value))
	return buf
}

func TestDecodeInputEvent(t *testing.T) {
	ev, ok := decodeInputEvent(encodeInputEvent(10, 500, evKey, 29, keyValueDown))
	require.True(t, ok)
	require.Equal(t, KeyCtrlL, ev.Key)
	require.Equal(t, EdgeDown, ev.Edge)
	require.Equal(t, time.Unix(10, 500*int64(time.Microsecond)), ev.At)

	ev, ok = decodeInputEvent(encodeInputEvent(0, 0, evKey, 56, keyValueRepeat))
	require.True(t, ok)
	require.Equal(t, EdgeDown, ev.Edge)

	ev, ok = decodeInputEvent(encodeInputEvent(0, 0, evKey, 56, keyValueUp))
	require.True(t, ok)
	require.Equal(t, EdgeUp, ev.Edge)

	_, ok = decodeInputEvent(encodeInputEvent(0, 0, 0x00, 0, 0))
	require.False(t, ok, "EV_SYN is not a key event")
}

func TestEvdevSourceMergesDevicesAndReportsFailure(t *testing.T) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	src := newEvdevSource([]io.ReadCloser{r1, r2})
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_, _ = w1.Write(encodeInputEvent(1, 0, 0x04, 4, 30))
		_, _ = w1.Write(encodeInputEvent(1, 0, evKey, 29, keyValueDown))
	}()
	ev, err := src.ReadEvent(ctx)
	require.NoError(t, err)
	require.Equal(t, KeyCtrlL, ev.Key)

	go func() { _, _ = w2.Write(encodeInputEvent(2, 0, evKey, 56, keyValueDown)) }()
	ev, err = src.ReadEvent(ctx)
	require.NoError(t, err)
	require.Equal(t, KeyAltL, ev.Key)

	require.NoError(t, w2.CloseWithError(io.ErrUnexpectedEOF))
	_, err = src.ReadEvent(ctx)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEvdevSourceFaultsMonitor(t *testing.T) {
	r, w := io.Pipe()
	src := newEvdevSource([]io.ReadCloser{r})
	defer src.Close()

	go func() {
		_, _ = w.Write(encodeInputEvent(1, 0, evKey, 29, keyValueDown))
		_ = w.Close()
	}()

	err := NewMonitor(NewCombo(KeyCtrlL, KeyAltL), src, nil).Run(context.Background(), func(context.Context, Signal) {})
	require.ErrorIs(t, err, ErrMonitorFault)
}

func TestOpenEvdevMissingDevice(t *testing.T) {
	_, err := OpenEvdev([]string{"/nonexistent/event99"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "open input device")

	_, err = OpenEvdev(nil)
	require.Error(t, err)
}

func TestTranslateHookEvent(t *testing.T) {
	at := time.Unix(100, 0)

	ev, ok := translateHookEvent(hook.Event{Kind: hook.KeyHold, Keycode: 0x001D, When: at})
	require.True(t, ok)
	require.Equal(t, KeyEvent{Key: KeyCtrlL, Edge: EdgeDown, At: at}, ev)

	ev, ok = translateHookEvent(hook.Event{Kind: hook.KeyUp, Keycode: 0x0E38, When: at})
	require.True(t, ok)
	require.Equal(t, KeyAltR, ev.Key)
	require.Equal(t, EdgeUp, ev.Edge)

	_, ok = translateHookEvent(hook.Event{Kind: hook.KeyDown, Keychar: 'a'})
	require.False(t, ok, "typed events without a key code are skipped")

	_, ok = translateHookEvent(hook.Event{Kind: hook.MouseMove})
	require.False(t, ok)
}

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrDeviceUnavailable covers busy, missing, and permission-denied inputs.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrTooShort means the sealed buffer is below the minimum duration.
	ErrTooShort = errors.New("recording too short")
)

// DefaultMinDuration is the shortest recording worth transcribing.
const DefaultMinDuration = 200 * time.Millisecond

// Device is one capture backend. Open starts streaming samples into sink
// until the returned Stream is closed. sink may be called from any goroutine.
type Device interface {
	Name() string
	Open(ctx context.Context, format Format, sink func([]int16)) (Stream, error)
}

// Stream is a live device handle.
type Stream interface {
	Close() error
}

// Recorder opens capture sessions on one device, one at a time.
type Recorder struct {
	device      Device
	format      Format
	minDuration time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	active *Session
}

func NewRecorder(device Device, format Format, minDuration time.Duration, logger *slog.Logger) *Recorder {
	if minDuration < 0 {
		minDuration = 0
	}
	return &Recorder{device: device, format: format, minDuration: minDuration, logger: logger}
}

func (r *Recorder) Format() Format { return r.format }

// Start acquires the device and begins accumulating samples.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	if err := r.format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, fmt.Errorf("%w: %s already owned by another capture session", ErrDeviceUnavailable, r.device.Name())
	}

	s := &Session{
		recorder:    r,
		acc:         newAccumulator(r.format),
		minDuration: r.minDuration,
		startedAt:   time.Now(),
	}
	stream, err := r.device.Open(ctx, r.format, s.onSamples)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, r.device.Name(), err)
	}
	s.stream = stream
	r.active = s

	r.log(slog.LevelDebug, "capture started", "device", r.device.Name(), "sample_rate", r.format.SampleRate, "channels", r.format.Channels)
	return s, nil
}

func (r *Recorder) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func (r *Recorder) log(level slog.Level, msg string, attrs ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Log(context.Background(), level, msg, attrs...)
}

// Session is one live capture. Exactly one of Stop or Abort takes effect;
// both release the device.
type Session struct {
	recorder    *Recorder
	acc         *accumulator
	stream      Stream
	minDuration time.Duration
	startedAt   time.Time

	mu      sync.Mutex
	done    bool
	result  Buffer
	stopErr error
}

func (s *Session) StartedAt() time.Time { return s.startedAt }

// Stop releases the device and returns the sealed buffer. Below the minimum
// duration the buffer is still returned, together with ErrTooShort.
func (s *Session) Stop() (Buffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.result, s.stopErr
	}
	s.done = true

	closeErr := s.releaseLocked()
	s.result = s.acc.seal()

	switch {
	case closeErr != nil:
		s.stopErr = fmt.Errorf("release audio device: %w", closeErr)
	case s.result.Duration() < s.minDuration:
		s.stopErr = fmt.Errorf("%w: captured %s, minimum %s", ErrTooShort, s.result.Duration(), s.minDuration)
	}

	s.recorder.log(slog.LevelDebug, "capture stopped",
		"frames", s.result.Frames(),
		"audio_ms", s.result.Duration().Milliseconds(),
	)
	return s.result, s.stopErr
}

// Abort releases the device and discards captured samples.
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	err := s.releaseLocked()
	s.acc.seal()
	s.recorder.log(slog.LevelDebug, "capture aborted")
	return err
}

func (s *Session) releaseLocked() error {
	defer s.recorder.release(s)
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

func (s *Session) onSamples(samples []int16) {
	// Late callbacks after seal are dropped.
	_ = s.acc.append(samples)
}

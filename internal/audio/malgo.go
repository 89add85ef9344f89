package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoDevice captures from the system default input through miniaudio.
type MalgoDevice struct{}

func (MalgoDevice) Name() string { return "malgo" }

func (MalgoDevice) Open(_ context.Context, format Format, sink func([]int16)) (Stream, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init miniaudio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Alsa.NoMMap = 1

	s := &malgoStream{ctx: mctx}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if s.isClosed() {
				return
			}
			sink(decodeS16LE(input))
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		s.freeContext()
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	return s, nil
}

type malgoStream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	closed bool
}

func (s *malgoStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var stopErr error
	if s.device != nil {
		stopErr = s.device.Stop()
		s.device.Uninit()
	}
	s.freeContext()
	return stopErr
}

func (s *malgoStream) freeContext() {
	if s.ctx == nil {
		return
	}
	_ = s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
}

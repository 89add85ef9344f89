package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// framesPerRead bounds Stop latency: the read loop checks for shutdown
// between blocking reads of this many frames.
const framesPerRead = 320

// PortAudioDevice captures from the PortAudio default input stream.
type PortAudioDevice struct {
	Logger *slog.Logger
}

func (PortAudioDevice) Name() string { return "portaudio" }

func (d PortAudioDevice) Open(_ context.Context, format Format, sink func([]int16)) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	in := make([]int16, framesPerRead*format.Channels)
	stream, err := portaudio.OpenDefaultStream(format.Channels, 0, float64(format.SampleRate), framesPerRead, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open default input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	s := &portAudioStream{stream: stream, done: make(chan struct{}), logger: d.Logger}
	s.wg.Add(1)
	go s.readLoop(in, sink)
	return s, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

func (s *portAudioStream) readLoop(in []int16, sink func([]int16)) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			if s.logger != nil {
				s.logger.Error("portaudio read failed", "error", err.Error())
			}
			return
		}
		sink(append([]int16(nil), in...))
	}
}

func (s *portAudioStream) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		errs = append(errs, s.stream.Stop(), s.stream.Close(), portaudio.Terminate())
	})
	return errors.Join(errs...)
}

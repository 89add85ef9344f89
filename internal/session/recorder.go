package session

import (
	"context"

	"github.com/rbright/voxtype/internal/audio"
)

// Capture is one in-flight recording.
type Capture interface {
	Stop() (audio.Buffer, error)
	Abort() error
}

// Recorder opens a capture against the configured input device.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// RecorderFunc adapts a plain function to Recorder.
type RecorderFunc func(ctx context.Context) (Capture, error)

func (f RecorderFunc) Start(ctx context.Context) (Capture, error) { return f(ctx) }

// AudioRecorder exposes an audio.Recorder as a session Recorder.
func AudioRecorder(rec *audio.Recorder) Recorder {
	return RecorderFunc(func(ctx context.Context) (Capture, error) {
		s, err := rec.Start(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Transcriber turns a finished buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, buf audio.Buffer) (string, error)
}

// Injector types text into the focused window.
type Injector interface {
	Type(ctx context.Context, text string) error
}

// Reporter receives operator-facing lifecycle signals.
type Reporter interface {
	Recording(ctx context.Context, sessionID string)
	Processing(ctx context.Context, sessionID string)
	Finished(ctx context.Context, outcome Outcome)
}

type noopReporter struct{}

func (noopReporter) Recording(context.Context, string)  {}
func (noopReporter) Processing(context.Context, string) {}
func (noopReporter) Finished(context.Context, Outcome)  {}

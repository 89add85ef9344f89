// Package asr bounds speech-to-text engines behind one transcription call.
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/voxtype/internal/audio"
)

var (
	// ErrTranscription wraps every engine failure that is not a timeout.
	ErrTranscription = errors.New("transcription failed")
	// ErrTranscriptionTimeout means the engine did not answer within the bound.
	ErrTranscriptionTimeout = errors.New("transcription timed out")
)

// DefaultTimeout bounds one transcription call.
const DefaultTimeout = 30 * time.Second

// Engine converts one sealed buffer to text. Implementations should honor
// ctx; the Gateway enforces its bound either way.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, buf audio.Buffer) (string, error)
}

// Gateway applies the transcription timeout and error classification.
type Gateway struct {
	engine  Engine
	timeout time.Duration
	logger  *slog.Logger
}

func NewGateway(engine Engine, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{engine: engine, timeout: timeout, logger: logger}
}

func (g *Gateway) Timeout() time.Duration { return g.timeout }

// Transcribe returns engine text, or an error matching ErrTranscription or
// ErrTranscriptionTimeout.
func (g *Gateway) Transcribe(ctx context.Context, buf audio.Buffer) (string, error) {
	if buf.Empty() {
		return "", fmt.Errorf("%w: empty audio buffer", ErrTranscription)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	text, err := runWithTimeout(callCtx, g.timeout, func() (string, error) {
		return g.engine.Transcribe(callCtx, buf)
	})
	latency := time.Since(started)

	if err != nil {
		if errors.Is(err, ErrTranscriptionTimeout) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s (%s)", ErrTranscriptionTimeout, g.timeout, g.engine.Name())
		} else if !errors.Is(err, ErrTranscription) {
			err = fmt.Errorf("%w: %s: %w", ErrTranscription, g.engine.Name(), err)
		}
		g.log(slog.LevelWarn, "transcription failed", "engine", g.engine.Name(), "latency_ms", latency.Milliseconds(), "error", err.Error())
		return "", err
	}

	g.log(slog.LevelDebug, "transcription complete",
		"engine", g.engine.Name(),
		"latency_ms", latency.Milliseconds(),
		"audio_ms", buf.Duration().Milliseconds(),
		"transcript_length", len(text),
	)
	return text, nil
}

// runWithTimeout bounds call even when it ignores ctx. A stalled call keeps
// running in the background; its result is discarded.
func runWithTimeout[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	resultCh := make(chan result[T], 1)
	go func() {
		v, err := call()
		resultCh <- result[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, ErrTranscriptionTimeout
	case r := <-resultCh:
		return r.value, r.err
	}
}

type result[T any] struct {
	value T
	err   error
}

func (g *Gateway) log(level slog.Level, msg string, attrs ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Log(context.Background(), level, msg, attrs...)
}

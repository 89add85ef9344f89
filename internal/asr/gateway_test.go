package asr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxtype/internal/audio"
)

type fakeEngine struct {
	text     string
	err      error
	block    chan struct{}
	honorCtx bool
	calls    atomic.Int32
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(ctx context.Context, _ audio.Buffer) (string, error) {
	f.calls.Add(1)
	if f.block != nil {
		if f.honorCtx {
			select {
			case <-f.block:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		} else {
			<-f.block
		}
	}
	return f.text, f.err
}

func oneSecond() audio.Buffer {
	return audio.NewBuffer(audio.DefaultFormat, make([]int16, 16000))
}

func TestGatewayReturnsEngineText(t *testing.T) {
	engine := &fakeEngine{text: "hello world"}
	text, err := NewGateway(engine, time.Second, nil).Transcribe(context.Background(), oneSecond())
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, int32(1), engine.calls.Load())
}

func TestGatewayWrapsEngineError(t *testing.T) {
	cause := errors.New("model not loaded")
	engine := &fakeEngine{err: cause}

	_, err := NewGateway(engine, time.Second, nil).Transcribe(context.Background(), oneSecond())
	require.ErrorIs(t, err, ErrTranscription)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrTranscriptionTimeout)
}

func TestGatewayTimesOutEngineThatIgnoresContext(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	defer close(engine.block)

	started := time.Now()
	_, err := NewGateway(engine, 50*time.Millisecond, nil).Transcribe(context.Background(), oneSecond())
	require.ErrorIs(t, err, ErrTranscriptionTimeout)
	require.NotErrorIs(t, err, ErrTranscription)
	require.Less(t, time.Since(started), 2*time.Second)
}

func TestGatewayTimesOutEngineThatHonorsContext(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{}), honorCtx: true}
	defer close(engine.block)

	_, err := NewGateway(engine, 50*time.Millisecond, nil).Transcribe(context.Background(), oneSecond())
	require.ErrorIs(t, err, ErrTranscriptionTimeout)
}

func TestGatewayEngineTimeoutSentinelIsKept(t *testing.T) {
	engine := &fakeEngine{err: ErrTranscriptionTimeout}
	_, err := NewGateway(engine, time.Second, nil).Transcribe(context.Background(), oneSecond())
	require.ErrorIs(t, err, ErrTranscriptionTimeout)
}

func TestGatewayParentCancelIsTranscriptionError(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{}), honorCtx: true}
	defer close(engine.block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGateway(engine, time.Second, nil).Transcribe(ctx, oneSecond())
	require.ErrorIs(t, err, ErrTranscription)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGatewayRejectsEmptyBuffer(t *testing.T) {
	engine := &fakeEngine{text: "never"}
	_, err := NewGateway(engine, time.Second, nil).Transcribe(context.Background(), audio.Buffer{})
	require.ErrorIs(t, err, ErrTranscription)
	require.Zero(t, engine.calls.Load())
}

func TestGatewayDefaultTimeout(t *testing.T) {
	require.Equal(t, DefaultTimeout, NewGateway(&fakeEngine{}, 0, nil).Timeout())
}

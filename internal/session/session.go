// Package session drives one push-to-talk cycle per hotkey hold: capture,
// transcription, and text injection, with at most one cycle in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/voxtype/internal/asr"
	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/fsm"
	"github.com/rbright/voxtype/internal/hotkey"
)

// Controller owns the session state machine. HandleSignal is called from
// the hotkey monitor goroutine; processing runs on its own goroutine so the
// monitor never blocks on a gateway.
type Controller struct {
	logger      *slog.Logger
	recorder    Recorder
	transcriber Transcriber
	injector    Injector
	reporter    Reporter
	now         func() time.Time

	mu       sync.Mutex
	state    fsm.State
	active   *active
	sessions int
	outcomes map[OutcomeKind]int
	last     *Outcome

	wg sync.WaitGroup
}

type active struct {
	id        string
	startedAt time.Time
	capture   Capture
}

// NewController wires the controller. A nil reporter disables operator signals.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	transcriber Transcriber,
	injector Injector,
	reporter Reporter,
) *Controller {
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &Controller{
		logger:      logger,
		recorder:    recorder,
		transcriber: transcriber,
		injector:    injector,
		reporter:    reporter,
		now:         time.Now,
		state:       fsm.StateIdle,
		outcomes:    make(map[OutcomeKind]int),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns the most recent terminal outcome, if any.
func (c *Controller) LastOutcome() (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Outcome{}, false
	}
	return *c.last, true
}

// Summary returns counters for status reporting.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Summary{Sessions: c.sessions, Outcomes: make(map[OutcomeKind]int, len(c.outcomes))}
	for k, v := range c.outcomes {
		out.Outcomes[k] = v
	}
	if c.last != nil {
		last := *c.last
		out.Last = &last
	}
	return out
}

// HandleSignal applies one combo edge. It returns once the edge has been
// applied; it never waits for transcription or injection.
func (c *Controller) HandleSignal(ctx context.Context, signal hotkey.Signal) {
	switch signal {
	case hotkey.SignalActivated:
		c.activate(ctx)
	case hotkey.SignalDeactivated:
		c.deactivate(ctx)
	default:
		c.log(slog.LevelWarn, "unknown hotkey signal", "signal", signal.String())
	}
}

func (c *Controller) activate(ctx context.Context) {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventActivate)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.ignored(state, fsm.EventActivate)
		return
	}

	id := uuid.NewString()
	startedAt := c.now()
	capture, err := c.recorder.Start(ctx)
	if err != nil {
		outcome := Outcome{
			SessionID:  id,
			Kind:       OutcomeDeviceUnavailable,
			Err:        err,
			StartedAt:  startedAt,
			FinishedAt: c.now(),
		}
		c.recordLocked(outcome)
		c.mu.Unlock()
		c.finished(ctx, outcome)
		return
	}

	c.state = next
	c.active = &active{id: id, startedAt: startedAt, capture: capture}
	c.mu.Unlock()

	c.log(slog.LevelInfo, "recording", "session_id", id)
	c.reporter.Recording(ctx, id)
}

func (c *Controller) deactivate(ctx context.Context) {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventDeactivate)
	if err != nil {
		state := c.state
		c.mu.Unlock()
		c.ignored(state, fsm.EventDeactivate)
		return
	}
	c.state = next
	sess := c.active
	c.wg.Add(1)
	c.mu.Unlock()

	c.log(slog.LevelInfo, "processing", "session_id", sess.id)
	go c.process(context.WithoutCancel(ctx), sess)
}

func (c *Controller) ignored(state fsm.State, event fsm.Event) {
	if state == fsm.StateProcessing {
		c.log(slog.LevelInfo, "hotkey edge dropped while processing", "event", string(event))
		return
	}
	c.log(slog.LevelDebug, "hotkey edge ignored", "state", string(state), "event", string(event))
}

func (c *Controller) process(ctx context.Context, sess *active) {
	defer c.wg.Done()

	c.reporter.Processing(ctx, sess.id)
	outcome := c.run(ctx, sess)
	outcome.FinishedAt = c.now()

	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventFinish)
	if err != nil {
		// Only Shutdown can move the state; fall back to idle regardless.
		next = fsm.StateIdle
	}
	c.state = next
	c.active = nil
	c.recordLocked(outcome)
	c.mu.Unlock()

	c.finished(ctx, outcome)
}

// run executes the post-release steps and classifies the result.
func (c *Controller) run(ctx context.Context, sess *active) Outcome {
	outcome := Outcome{SessionID: sess.id, StartedAt: sess.startedAt}

	buf, err := sess.capture.Stop()
	outcome.AudioDuration = buf.Duration()
	outcome.Frames = buf.Frames()
	switch {
	case errors.Is(err, audio.ErrTooShort):
		outcome.Kind = OutcomeNothingCaptured
		return outcome
	case err != nil:
		outcome.Kind = OutcomeCaptureFailed
		outcome.Err = err
		return outcome
	}

	if buf.Silent() {
		c.log(slog.LevelWarn, "audio buffer appears silent",
			"session_id", sess.id, "peak", buf.Peak(), "duration", buf.Duration().String())
	}

	text, err := c.transcriber.Transcribe(ctx, buf)
	if err != nil {
		outcome.Err = err
		outcome.Kind = OutcomeTranscriptionFailed
		if errors.Is(err, asr.ErrTranscriptionTimeout) {
			outcome.Kind = OutcomeTranscriptionTimeout
		}
		return outcome
	}
	if strings.TrimSpace(text) == "" {
		outcome.Kind = OutcomeNoSpeech
		return outcome
	}

	outcome.Text = text
	if err := c.injector.Type(ctx, text); err != nil {
		outcome.Kind = OutcomeInjectionFailed
		outcome.Err = err
		return outcome
	}
	outcome.Kind = OutcomeTyped
	return outcome
}

func (c *Controller) recordLocked(outcome Outcome) {
	c.sessions++
	c.outcomes[outcome.Kind]++
	c.last = &outcome
}

func (c *Controller) finished(ctx context.Context, outcome Outcome) {
	attrs := []any{
		"session_id", outcome.SessionID,
		"outcome", string(outcome.Kind),
		"audio_ms", outcome.AudioDuration.Milliseconds(),
		"frames", outcome.Frames,
		"duration_ms", outcome.FinishedAt.Sub(outcome.StartedAt).Milliseconds(),
	}
	switch {
	case outcome.Kind == OutcomeInjectionFailed:
		// The transcript is otherwise lost; keep it in the log so it can be recovered.
		c.log(slog.LevelWarn, "transcript not typed", append(attrs, "text", outcome.Text, "error", outcome.Err.Error())...)
	case outcome.Err != nil:
		c.log(slog.LevelError, "session failed", append(attrs, "error", outcome.Err.Error())...)
	case outcome.Kind == OutcomeTyped:
		c.log(slog.LevelInfo, "session complete", append(attrs, "transcript_length", len(outcome.Text))...)
	default:
		c.log(slog.LevelInfo, "session complete", attrs...)
	}
	c.reporter.Finished(ctx, outcome)
}

// Abort drops an active recording without transcribing it. Outside the
// recording state it returns a *fsm.TransitionError and changes nothing.
func (c *Controller) Abort(ctx context.Context) error {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventAbort)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	sess := c.active
	c.state = next
	c.active = nil

	abortErr := sess.capture.Abort()
	outcome := Outcome{
		SessionID:  sess.id,
		Kind:       OutcomeAborted,
		StartedAt:  sess.startedAt,
		FinishedAt: c.now(),
	}
	if abortErr != nil {
		outcome.Err = fmt.Errorf("abort capture: %w", abortErr)
	}
	c.recordLocked(outcome)
	c.mu.Unlock()

	c.finished(ctx, outcome)
	return nil
}

// Shutdown aborts an active recording and waits for in-flight processing
// to finish or for ctx to expire.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.Abort(ctx); err != nil {
		var transitionErr *fsm.TransitionError
		if !errors.As(err, &transitionErr) {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for in-flight session: %w", ctx.Err())
	}
}

func (c *Controller) log(level slog.Level, msg string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Log(context.Background(), level, msg, attrs...)
}

// Package indicator turns session lifecycle signals into on-screen
// notifications and short audio cues.
package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/rbright/voxtype/internal/hypr"
	"github.com/rbright/voxtype/internal/session"
)

// Options selects the notification surface and cue behaviour.
type Options struct {
	// Backend is "hypr", "desktop", or "none".
	Backend      string
	SoundEnable  bool
	AppName      string
	ErrorTimeout time.Duration
}

type noticeKind int

const (
	noticeRecording noticeKind = iota + 1
	noticeProcessing
	noticeError
)

type surface interface {
	show(ctx context.Context, kind noticeKind, text string, timeout time.Duration) error
	hide(ctx context.Context) error
}

// surfaceTimeout bounds one surface update.
const surfaceTimeout = 400 * time.Millisecond

// Notifier implements session.Reporter. Reporter calls return at once;
// surface updates run in call order on their own goroutines and cues play
// one at a time.
type Notifier struct {
	opts    Options
	logger  *slog.Logger
	surface surface

	surfaceMu sync.Mutex
	pending   chan struct{}

	soundMu sync.Mutex
	player  *pulsePlayer
	emit    func(cue) error
}

var _ session.Reporter = (*Notifier)(nil)

// New builds a Notifier for the configured backend.
func New(opts Options, logger *slog.Logger) (*Notifier, error) {
	if opts.ErrorTimeout <= 0 {
		opts.ErrorTimeout = 1200 * time.Millisecond
	}
	if strings.TrimSpace(opts.AppName) == "" {
		opts.AppName = "voxtype"
	}

	var s surface
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "hypr":
		s = hyprSurface{}
	case "desktop":
		s = desktopSurface{appName: opts.AppName}
	case "none":
		s = noSurface{}
	default:
		return nil, fmt.Errorf("unsupported indicator backend %q", opts.Backend)
	}

	n := &Notifier{
		opts:    opts,
		logger:  logger,
		surface: s,
		player:  &pulsePlayer{},
	}
	n.emit = func(c cue) error { return n.player.play(c.render()) }
	return n, nil
}

func (n *Notifier) Recording(ctx context.Context, _ string) {
	n.playCue(recordingCue)
	n.update(ctx, func(ctx context.Context) error {
		return n.surface.show(ctx, noticeRecording, textRecording, 5*time.Minute)
	})
}

func (n *Notifier) Processing(ctx context.Context, _ string) {
	n.playCue(processingCue)
	n.update(ctx, func(ctx context.Context) error {
		return n.surface.show(ctx, noticeProcessing, textProcessing, 5*time.Minute)
	})
}

func (n *Notifier) Finished(ctx context.Context, outcome session.Outcome) {
	n.playCue(cueFor(outcome.Kind))

	text, ok := messageFor(outcome.Kind)
	if !ok {
		n.update(ctx, n.surface.hide)
		return
	}
	n.update(ctx, func(ctx context.Context) error {
		return n.surface.show(ctx, noticeError, text, n.opts.ErrorTimeout)
	})
}

// update queues fn behind every earlier update and returns without waiting.
// Failures are logged and never reach the session.
func (n *Notifier) update(ctx context.Context, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	done := make(chan struct{})

	n.surfaceMu.Lock()
	prev := n.pending
	n.pending = done
	n.surfaceMu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		runCtx, cancel := context.WithTimeout(ctx, surfaceTimeout)
		defer cancel()
		if err := fn(runCtx); err != nil {
			n.log("indicator dispatch failed", err)
		}
	}()
}

// Flush waits until every queued surface update has run.
func (n *Notifier) Flush(ctx context.Context) error {
	n.surfaceMu.Lock()
	pending := n.pending
	n.surfaceMu.Unlock()
	if pending == nil {
		return nil
	}
	select {
	case <-pending:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending surface updates and releases the cue connection.
func (n *Notifier) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*surfaceTimeout)
	defer cancel()
	err := n.Flush(ctx)

	n.soundMu.Lock()
	n.player.close()
	n.soundMu.Unlock()
	return err
}

// playCue serializes cue playback off the caller's goroutine.
func (n *Notifier) playCue(c cue) {
	if !n.opts.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.emit(c); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

type hyprSurface struct{}

func (hyprSurface) show(ctx context.Context, kind noticeKind, text string, timeout time.Duration) error {
	icon, color := 1, "rgb(89b4fa)"
	switch kind {
	case noticeProcessing:
		color = "rgb(cba6f7)"
	case noticeError:
		icon, color = 3, "rgb(f38ba8)"
	}
	// Replace whatever is on screen so states never stack.
	if err := hypr.DismissNotify(ctx); err != nil {
		return err
	}
	return hypr.Notify(ctx, icon, int(timeout.Milliseconds()), color, text)
}

func (hyprSurface) hide(ctx context.Context) error {
	return hypr.DismissNotify(ctx)
}

// desktopSurface posts freedesktop notifications. They cannot be replaced
// or withdrawn, so only errors are shown.
type desktopSurface struct {
	appName string
}

func (d desktopSurface) show(_ context.Context, kind noticeKind, text string, _ time.Duration) error {
	if kind != noticeError {
		return nil
	}
	return beeep.Notify(d.appName, text, "")
}

func (desktopSurface) hide(context.Context) error { return nil }

type noSurface struct{}

func (noSurface) show(context.Context, noticeKind, string, time.Duration) error { return nil }
func (noSurface) hide(context.Context) error                                    { return nil }

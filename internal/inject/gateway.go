// Package inject delivers transcribed text to the focused application.
package inject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInjection wraps every failed delivery.
	ErrInjection = errors.New("text injection failed")
	// ErrNoFocusTarget means no window can receive keystrokes.
	ErrNoFocusTarget = errors.New("no focused input target")
)

// Typer delivers text as keystrokes (or a paste) to the current focus.
type Typer interface {
	Name() string
	Type(ctx context.Context, text string) error
}

// FocusChecker reports whether a window currently holds input focus.
type FocusChecker interface {
	CheckFocus(ctx context.Context) error
}

// Gateway types through a primary Typer and, optionally, one fallback.
type Gateway struct {
	primary  Typer
	fallback Typer
	focus    FocusChecker
	logger   *slog.Logger
}

type Option func(*Gateway)

// WithFallback tries typer once when the primary fails.
func WithFallback(typer Typer) Option {
	return func(g *Gateway) { g.fallback = typer }
}

// WithFocusCheck refuses to type when checker finds no focused window.
func WithFocusCheck(checker FocusChecker) Option {
	return func(g *Gateway) { g.focus = checker }
}

func NewGateway(primary Typer, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{primary: primary, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Type delivers text. Errors match ErrInjection; text is never retried
// through the same backend.
func (g *Gateway) Type(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if g.focus != nil {
		if err := g.focus.CheckFocus(ctx); err != nil {
			return fmt.Errorf("%w: %w: %v", ErrInjection, ErrNoFocusTarget, err)
		}
	}

	err := g.primary.Type(ctx, text)
	if err == nil {
		return nil
	}
	if g.fallback == nil {
		return fmt.Errorf("%w: %s: %w", ErrInjection, g.primary.Name(), err)
	}

	g.log(slog.LevelWarn, "primary typer failed; trying fallback",
		"typer", g.primary.Name(),
		"fallback", g.fallback.Name(),
		"error", err.Error(),
	)
	if ferr := g.fallback.Type(ctx, text); ferr != nil {
		return fmt.Errorf("%w: %s: %w; %s: %w", ErrInjection, g.primary.Name(), err, g.fallback.Name(), ferr)
	}
	return nil
}

func (g *Gateway) log(level slog.Level, msg string, attrs ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Log(context.Background(), level, msg, attrs...)
}

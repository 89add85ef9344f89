package inject

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"github.com/rbright/voxtype/internal/hypr"
)

// Paster sends the paste shortcut to the focused window.
type Paster interface {
	Paste(ctx context.Context) error
}

// ClipboardTyper puts text on the clipboard, pastes it, then restores the
// previous clipboard text.
type ClipboardTyper struct {
	paster  Paster
	restore bool
	// RestoreDelay lets the target read the clipboard before it is restored.
	RestoreDelay time.Duration

	read  func() (string, error)
	write func(string) error
}

func NewClipboardTyper(paster Paster, restore bool) *ClipboardTyper {
	return &ClipboardTyper{
		paster:       paster,
		restore:      restore,
		RestoreDelay: 150 * time.Millisecond,
		read:         clipboard.ReadAll,
		write:        clipboard.WriteAll,
	}
}

func (c *ClipboardTyper) Name() string { return "clipboard" }

func (c *ClipboardTyper) Type(ctx context.Context, text string) error {
	previous, readErr := c.read()

	if err := c.write(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	canRestore := c.restore && readErr == nil
	if err := c.paster.Paste(ctx); err != nil {
		// Nothing read the clipboard, so put the previous text back at once.
		if canRestore {
			if restoreErr := c.write(previous); restoreErr != nil {
				return fmt.Errorf("paste: %w (restore clipboard: %v)", err, restoreErr)
			}
		}
		return fmt.Errorf("paste: %w", err)
	}

	if !canRestore {
		return nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.RestoreDelay):
	}
	if err := c.write(previous); err != nil {
		return fmt.Errorf("restore clipboard: %w", err)
	}
	return nil
}

// KeyboardPaster presses Ctrl+V on a virtual uinput keyboard.
type KeyboardPaster struct {
	typer *UinputTyper
}

// NewKeyboardPaster shares the typer's virtual keyboard so the device is
// created once per process.
func NewKeyboardPaster(typer *UinputTyper) *KeyboardPaster {
	return &KeyboardPaster{typer: typer}
}

func (k *KeyboardPaster) Paste(ctx context.Context) error {
	k.typer.mu.Lock()
	defer k.typer.mu.Unlock()

	kb, err := k.typer.keyboardLocked(ctx)
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	err = kb.Launching()
	kb.HasCTRL(false)
	return err
}

// HyprPaster dispatches the paste shortcut to the active Hyprland window.
type HyprPaster struct {
	Shortcut string
}

func (h HyprPaster) Paste(ctx context.Context) error {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}
	payload, err := buildPasteShortcut(h.Shortcut, window.Address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

// HyprFocus checks for an active Hyprland window before typing.
type HyprFocus struct{}

func (HyprFocus) CheckFocus(ctx context.Context) error {
	_, err := activeWindowWithRetry(ctx, 3, 20*time.Millisecond)
	return err
}

func buildPasteShortcut(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		shortcut = "CTRL,V"
	}
	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}
	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	var lastErr error
	for i := 0; i < max(attempts, 1); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return hypr.ActiveWindow{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}

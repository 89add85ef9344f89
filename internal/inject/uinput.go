package inject

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// keyboard is the subset of keybd_event.KeyBonding the typers drive.
type keyboard interface {
	SetKeys(keys ...int)
	HasSHIFT(bool)
	HasCTRL(bool)
	Launching() error
}

type keystroke struct {
	code  int
	shift bool
}

// usLayout maps runes to Linux key codes on a US keyboard.
var usLayout = map[rune]keystroke{}

func init() {
	rows := []struct {
		plain, shifted string
		codes          []int
	}{
		{"1234567890-=", "!@#$%^&*()_+", []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}},
		{"qwertyuiop[]", "QWERTYUIOP{}", []int{16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27}},
		{"asdfghjkl;'`", "ASDFGHJKL:\"~", []int{30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41}},
		{"\\zxcvbnm,./", "|ZXCVBNM<>?", []int{43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53}},
	}
	for _, row := range rows {
		plain, shifted := []rune(row.plain), []rune(row.shifted)
		for i, code := range row.codes {
			usLayout[plain[i]] = keystroke{code: code}
			usLayout[shifted[i]] = keystroke{code: code, shift: true}
		}
	}
	usLayout[' '] = keystroke{code: 57}
	usLayout['\n'] = keystroke{code: 28}
	usLayout['\t'] = keystroke{code: 15}
}

// UinputTyper synthesizes key presses through a virtual /dev/uinput keyboard.
// Only runes on the US layout are supported.
type UinputTyper struct {
	// Settle is the pause after creating the virtual device so the
	// compositor picks it up before the first key.
	Settle time.Duration

	mu  sync.Mutex
	kb  keyboard
	new func() (keyboard, error)
}

func NewUinputTyper() *UinputTyper {
	return &UinputTyper{
		Settle: 2 * time.Second,
		new: func() (keyboard, error) {
			kb, err := keybd_event.NewKeyBonding()
			if err != nil {
				return nil, err
			}
			return &kb, nil
		},
	}
}

func (u *UinputTyper) Name() string { return "uinput" }

func (u *UinputTyper) Type(ctx context.Context, text string) error {
	strokes, err := layoutStrokes(text)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	kb, err := u.keyboardLocked(ctx)
	if err != nil {
		return err
	}
	for _, s := range strokes {
		if err := ctx.Err(); err != nil {
			return err
		}
		kb.HasSHIFT(s.shift)
		kb.SetKeys(s.code)
		if err := kb.Launching(); err != nil {
			return fmt.Errorf("send key %d: %w", s.code, err)
		}
	}
	kb.HasSHIFT(false)
	return nil
}

// keyboardLocked creates the virtual device on first use.
func (u *UinputTyper) keyboardLocked(ctx context.Context) (keyboard, error) {
	if u.kb != nil {
		return u.kb, nil
	}
	kb, err := u.new()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	if runtime.GOOS == "linux" && u.Settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(u.Settle):
		}
	}
	u.kb = kb
	return kb, nil
}

// layoutStrokes resolves every rune up front so unsupported text fails
// before anything is typed.
func layoutStrokes(text string) ([]keystroke, error) {
	strokes := make([]keystroke, 0, len(text))
	for _, r := range text {
		s, ok := usLayout[r]
		if !ok {
			return nil, fmt.Errorf("rune %q has no key on the US layout", r)
		}
		strokes = append(strokes, s)
	}
	return strokes, nil
}

package hotkey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Key is a logical key identifier, independent of the raw event source.
type Key string

const (
	KeyCtrlL     Key = "CtrlL"
	KeyCtrlR     Key = "CtrlR"
	KeyAltL      Key = "AltL"
	KeyAltR      Key = "AltR"
	KeyShiftL    Key = "ShiftL"
	KeyShiftR    Key = "ShiftR"
	KeySuperL    Key = "SuperL"
	KeySuperR    Key = "SuperR"
	KeySpace     Key = "Space"
	KeyEnter     Key = "Enter"
	KeyEsc       Key = "Esc"
	KeyTab       Key = "Tab"
	KeyBackspace Key = "Backspace"
	KeyCapsLock  Key = "CapsLock"
	KeyMinus     Key = "Minus"
	KeyEqual     Key = "Equal"
	KeyGrave     Key = "Grave"
)

// linuxCodes maps Linux input-event-codes to logical keys. libuiohook
// virtual codes share these values for the main block.
var linuxCodes = map[uint16]Key{
	1: KeyEsc, 14: KeyBackspace, 15: KeyTab, 28: KeyEnter, 57: KeySpace,
	58: KeyCapsLock, 12: KeyMinus, 13: KeyEqual, 41: KeyGrave,
	29: KeyCtrlL, 97: KeyCtrlR, 56: KeyAltL, 100: KeyAltR,
	42: KeyShiftL, 54: KeyShiftR, 125: KeySuperL, 126: KeySuperR,
}

// uiohookOverrides holds the libuiohook codes that differ from Linux codes.
var uiohookOverrides = map[uint16]Key{
	0x0E1D: KeyCtrlR,
	0x0E38: KeyAltR,
	0x0E5B: KeySuperL,
	0x0E5C: KeySuperR,
}

var aliases = map[string]Key{
	"leftctrl": KeyCtrlL, "lctrl": KeyCtrlL, "controll": KeyCtrlL, "controlleft": KeyCtrlL,
	"rightctrl": KeyCtrlR, "rctrl": KeyCtrlR, "controlr": KeyCtrlR, "controlright": KeyCtrlR,
	"leftalt": KeyAltL, "lalt": KeyAltL, "altleft": KeyAltL,
	"rightalt": KeyAltR, "ralt": KeyAltR, "altright": KeyAltR, "altgr": KeyAltR,
	"leftshift": KeyShiftL, "lshift": KeyShiftL, "shiftleft": KeyShiftL,
	"rightshift": KeyShiftR, "rshift": KeyShiftR, "shiftright": KeyShiftR,
	"leftmeta": KeySuperL, "metal": KeySuperL, "lsuper": KeySuperL, "cmdl": KeySuperL,
	"rightmeta": KeySuperR, "metar": KeySuperR, "rsuper": KeySuperR, "cmdr": KeySuperR,
	"return": KeyEnter, "escape": KeyEsc,
}

var byName = map[string]Key{}

func init() {
	letters := []struct {
		r    rune
		code uint16
	}{
		{'Q', 16}, {'W', 17}, {'E', 18}, {'R', 19}, {'T', 20}, {'Y', 21}, {'U', 22}, {'I', 23}, {'O', 24}, {'P', 25},
		{'A', 30}, {'S', 31}, {'D', 32}, {'F', 33}, {'G', 34}, {'H', 35}, {'J', 36}, {'K', 37}, {'L', 38},
		{'Z', 44}, {'X', 45}, {'C', 46}, {'V', 47}, {'B', 48}, {'N', 49}, {'M', 50},
	}
	for _, l := range letters {
		linuxCodes[l.code] = Key(string(l.r))
	}
	for i := 1; i <= 9; i++ {
		linuxCodes[uint16(i+1)] = Key(strconv.Itoa(i))
	}
	linuxCodes[11] = Key("0")
	for i := 1; i <= 10; i++ {
		linuxCodes[uint16(58+i)] = Key("F" + strconv.Itoa(i))
	}
	linuxCodes[87] = Key("F11")
	linuxCodes[88] = Key("F12")

	for _, key := range linuxCodes {
		byName[normalizeName(string(key))] = key
	}
	for alias, key := range aliases {
		byName[alias] = key
	}
}

// ParseKey resolves a configured key name. Matching ignores case, '_' and '-'.
func ParseKey(name string) (Key, error) {
	key, ok := byName[normalizeName(name)]
	if !ok {
		return "", fmt.Errorf("unknown key %q", name)
	}
	return key, nil
}

// KeyFromLinuxCode translates an evdev EV_KEY code.
func KeyFromLinuxCode(code uint16) Key {
	if key, ok := linuxCodes[code]; ok {
		return key
	}
	return unknownKey(code)
}

// KeyFromUiohookCode translates a libuiohook virtual key code.
func KeyFromUiohookCode(code uint16) Key {
	if key, ok := uiohookOverrides[code]; ok {
		return key
	}
	if key, ok := linuxCodes[code]; ok && code < 97 {
		return key
	}
	return unknownKey(code)
}

// KnownKeys returns every canonical key name, sorted.
func KnownKeys() []Key {
	keys := make([]Key, 0, len(linuxCodes))
	for _, key := range linuxCodes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func unknownKey(code uint16) Key {
	return Key("code:" + strconv.Itoa(int(code)))
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	return strings.ReplaceAll(name, "-", "")
}

package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Combo is the set of keys that must be held together to activate dictation.
type Combo struct {
	keys map[Key]struct{}
}

// ParseCombo builds a Combo from configured key names. Duplicates collapse.
func ParseCombo(names []string) (Combo, error) {
	if len(names) == 0 {
		return Combo{}, errors.New("key combo must name at least one key")
	}
	keys := make(map[Key]struct{}, len(names))
	for _, name := range names {
		key, err := ParseKey(name)
		if err != nil {
			return Combo{}, fmt.Errorf("parse key combo: %w", err)
		}
		keys[key] = struct{}{}
	}
	return Combo{keys: keys}, nil
}

// NewCombo builds a Combo from already-resolved keys.
func NewCombo(keys ...Key) Combo {
	set := make(map[Key]struct{}, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return Combo{keys: set}
}

// Contains reports whether key is a member of the combo.
func (c Combo) Contains(key Key) bool {
	_, ok := c.keys[key]
	return ok
}

func (c Combo) Len() int { return len(c.keys) }

// Keys returns combo members sorted by name.
func (c Combo) Keys() []Key {
	out := make([]Key, 0, len(c.keys))
	for key := range c.keys {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c Combo) String() string {
	keys := c.Keys()
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = string(key)
	}
	return strings.Join(parts, "+")
}

// comboState tracks which combo members are currently held.
type comboState struct {
	combo Combo
	held  map[Key]struct{}
}

func newComboState(combo Combo) *comboState {
	return &comboState{combo: combo, held: make(map[Key]struct{}, combo.Len())}
}

// Active reports whether every combo member is held.
func (s *comboState) Active() bool {
	return s.combo.Len() > 0 && len(s.held) == s.combo.Len()
}

// apply records one key edge and returns the signal it produces, if any.
func (s *comboState) apply(ev KeyEvent) (Signal, bool) {
	if !s.combo.Contains(ev.Key) {
		return 0, false
	}

	wasActive := s.Active()
	switch ev.Edge {
	case EdgeDown:
		s.held[ev.Key] = struct{}{}
	case EdgeUp:
		if _, ok := s.held[ev.Key]; !ok {
			return 0, false
		}
		delete(s.held, ev.Key)
	default:
		return 0, false
	}

	active := s.Active()
	switch {
	case !wasActive && active:
		return SignalActivated, true
	case wasActive && !active:
		return SignalDeactivated, true
	default:
		return 0, false
	}
}

func (s *comboState) reset() {
	clear(s.held)
}

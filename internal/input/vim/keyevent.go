package vim

// Key identifies a pressed key for the purposes of vim-style parsing.
// It intentionally covers only what the parser needs to distinguish:
// printable runes versus the handful of special keys that affect state.
type Key uint8

const (
	KeyRune Key = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyTab
)

// Mod is a bitmask of modifier keys held during a KeyEvent.
type Mod uint8

const (
	ModNone  Mod = 0
	ModShift Mod = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// KeyEvent is the minimal keystroke representation the vim parser consumes.
type KeyEvent struct {
	Key       Key
	Rune      rune
	Modifiers Mod
}

// NewRuneEvent creates a KeyEvent for a printable character.
func NewRuneEvent(r rune, mods Mod) KeyEvent {
	return KeyEvent{Key: KeyRune, Rune: r, Modifiers: mods}
}

// NewSpecialEvent creates a KeyEvent for a non-rune key.
func NewSpecialEvent(k Key, mods Mod) KeyEvent {
	return KeyEvent{Key: k, Modifiers: mods}
}

// IsRune returns true if this is a character key event.
func (e KeyEvent) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsModified returns true if any modifier besides Shift is held.
// Shift alone does not count as "modified" for rune events, since
// shifted characters (e.g. 'D' for Shift+d) arrive as distinct runes.
func (e KeyEvent) IsModified() bool {
	return e.Modifiers&(ModCtrl|ModAlt|ModMeta) != 0
}

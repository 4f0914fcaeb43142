// Package hotkey provides polled global keyboard state and rising-edge
// detection for the recording loop.
package hotkey

// Keyboard reports whether a key is currently held down. Pressed must
// be cheap and non-blocking; it is polled once per frame tick.
type Keyboard interface {
	Pressed(code uint16) bool
}

// Edge turns consecutive polls of a key into a rising-edge signal that
// fires exactly once per physical press, no matter how many polls
// observe the key held.
type Edge struct {
	last bool
}

// Rising returns true when pressed transitioned from false to true
// since the previous call.
func (e *Edge) Rising(pressed bool) bool {
	rose := pressed && !e.last
	e.last = pressed
	return rose
}

// AbortPressed reports whether the fixed abort-recording combination
// (Ctrl+F1) is held.
func AbortPressed(k Keyboard) bool {
	return k.Pressed(CodeCtrl) && k.Pressed(CodeF1)
}

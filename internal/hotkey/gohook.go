package hotkey

import (
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Codes for the fixed abort combination.
var (
	CodeCtrl = hook.Keycode["ctrl"]
	CodeF1   = hook.Keycode["f1"]
)

// Lookup resolves a configured key name (e.g. "F10") to a key code.
// Names are case-insensitive.
func Lookup(name string) (uint16, bool) {
	code, ok := hook.Keycode[strings.ToLower(name)]
	return code, ok
}

// Listener tracks global key state from the gohook event stream so the
// recording loop can poll it without blocking.
type Listener struct {
	mu      sync.RWMutex
	pressed map[uint16]bool
	done    chan struct{}
}

// Listen installs the global keyboard hook and starts tracking state.
func Listen() *Listener {
	l := &Listener{
		pressed: make(map[uint16]bool),
		done:    make(chan struct{}),
	}
	events := hook.Start()
	go l.run(events)
	return l
}

func (l *Listener) run(events <-chan hook.Event) {
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				l.set(ev.Keycode, true)
			case hook.KeyUp:
				l.set(ev.Keycode, false)
			}
		}
	}
}

func (l *Listener) set(code uint16, down bool) {
	l.mu.Lock()
	l.pressed[code] = down
	l.mu.Unlock()
}

// Pressed reports whether the key is currently held.
func (l *Listener) Pressed(code uint16) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pressed[code]
}

// Close uninstalls the global hook and stops tracking.
func (l *Listener) Close() {
	close(l.done)
	hook.End()
}

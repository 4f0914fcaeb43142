// Package integration exercises the recording pipeline end to end
// against a stub ffmpeg binary that records its invocations.
package integration

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Harness holds the shared pieces of a pipeline test: a working
// directory, a stub ffmpeg and the fake capture/keyboard seams.
type Harness struct {
	t *testing.T

	// Dir is the working directory for buffers, manifests and clips.
	Dir string

	// FFmpegPath points at the stub binary.
	FFmpegPath string

	Keyboard *FakeKeyboard
	Source   *FakeSource
}

// NewHarness builds a harness in a temp directory.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	dir := t.TempDir()
	return &Harness{
		t:          t,
		Dir:        dir,
		FFmpegPath: writeStubFFmpeg(t, dir),
		Keyboard:   NewFakeKeyboard(),
		Source:     &FakeSource{},
	}
}

// Logger returns a quiet test logger.
func (h *Harness) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// Invocations returns the argument vectors of every stub ffmpeg run so
// far, one slice per invocation.
func (h *Harness) Invocations() [][]string {
	h.t.Helper()
	data, err := os.ReadFile(filepath.Join(h.Dir, "invocations.log"))
	if err != nil {
		return nil
	}
	var runs [][]string
	for _, block := range strings.Split(strings.TrimSuffix(string(data), "---\n"), "---\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		runs = append(runs, strings.Split(block, "\n"))
	}
	return runs
}

// WaitFor polls cond until it holds or the test fails.
func (h *Harness) WaitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("Timed out waiting for %s", what)
}

// Glob returns the files in Dir matching pattern.
func (h *Harness) Glob(pattern string) []string {
	h.t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.Dir, pattern))
	if err != nil {
		h.t.Fatalf("Bad glob %q: %v", pattern, err)
	}
	return matches
}

// writeStubFFmpeg writes a shell script standing in for ffmpeg. It
// appends its argument vector to invocations.log and mimics the two
// invocation modes: concat creates the output file named by the last
// argument; segment encode creates slot 0 and drains stdin until the
// caller closes it.
func writeStubFFmpeg(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
{ printf '%s\n' "$@"; echo ---; } >> "` + dir + `/invocations.log"
for a; do last=$a; done
case "$*" in
*"-f concat"*)
	: > "$last"
	;;
*)
	: > "` + dir + `/buffer0.mp4"
	cat > /dev/null
	;;
esac
`
	path := filepath.Join(dir, "ffmpeg-stub")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write ffmpeg stub: %v", err)
	}
	return path
}

// FakeSource produces a fixed 2x2 BGRA frame every tick.
type FakeSource struct{}

func (f *FakeSource) Frame() ([]byte, error) {
	return make([]byte, 2*2*4), nil
}

func (f *FakeSource) Width() int   { return 2 }
func (f *FakeSource) Height() int  { return 2 }
func (f *FakeSource) Close() error { return nil }

// FakeKeyboard holds mutable global key state.
type FakeKeyboard struct {
	mu   sync.Mutex
	down map[uint16]bool
}

func NewFakeKeyboard() *FakeKeyboard {
	return &FakeKeyboard{down: make(map[uint16]bool)}
}

func (f *FakeKeyboard) Pressed(code uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down[code]
}

// Set changes a key's held state.
func (f *FakeKeyboard) Set(code uint16, pressed bool) {
	f.mu.Lock()
	f.down[code] = pressed
	f.mu.Unlock()
}

// Package clip materializes the rotating segment files into finished,
// timestamped clips.
package clip

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stuxvii/moment/internal/encoder"
)

const (
	manifestName = "concat_list.txt"

	// outputTimeLayout names clips with second precision, underscores
	// separating the time components.
	outputTimeLayout = "2006-01-02.15_04_05"
)

// Stage marks a point in the finalize sequence; chimes give headless
// confirmation that a clip request went through.
type Stage int

const (
	StageRequested Stage = iota
	StageManifestReady
	StageDone
)

// Chime signals finalize progress. Implementations must not block for
// long; failures inside a chime are the chime's own problem and never
// abort a finalize.
type Chime func(stage Stage)

// TerminalChime rings the terminal bell once per stage.
func TerminalChime(Stage) {
	os.Stdout.WriteString("\a")
}

// SlotPath returns the path of rotating segment slot i inside dir.
func SlotPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("buffer%d.mp4", i))
}

// SlotPattern returns the encoder output pattern for dir.
func SlotPattern(dir string) string {
	return filepath.Join(dir, "buffer%d.mp4")
}

// Finalizer merges the rotating slot files into standalone clips. A
// lost clip must never stop future recording, so every failure is
// reported rather than escalated.
type Finalizer struct {
	dir    string
	concat encoder.Concatenator
	chime  Chime
	logger *slog.Logger
	now    func() time.Time
}

// New creates a finalizer working in dir, which holds the slot files
// and receives finished clips. A nil chime is allowed.
func New(dir string, concat encoder.Concatenator, chime Chime, logger *slog.Logger) *Finalizer {
	if chime == nil {
		chime = func(Stage) {}
	}
	return &Finalizer{
		dir:    dir,
		concat: concat,
		chime:  chime,
		logger: logger,
		now:    time.Now,
	}
}

// Finalize concatenates the slot files present on disk, oldest first,
// into a new timestamped clip. It returns the clip path, or "" with a
// nil error when no slot file exists yet. The manifest never survives
// the call, on success or failure.
func (f *Finalizer) Finalize() (string, error) {
	f.chime(StageRequested)

	ordered := f.orderedSlots()
	if len(ordered) == 0 {
		f.logger.Warn("no segment files on disk, nothing to finalize")
		return "", nil
	}

	manifest := filepath.Join(f.dir, manifestName)
	if err := writeManifest(manifest, ordered); err != nil {
		return "", err
	}
	defer os.Remove(manifest)

	f.chime(StageManifestReady)

	out := filepath.Join(f.dir, "clip_"+f.now().Format(outputTimeLayout)+".mp4")
	if err := f.concat.Concat(manifest, out); err != nil {
		return "", fmt.Errorf("failed to merge segments: %w", err)
	}

	f.chime(StageDone)
	return out, nil
}

// orderedSlots returns the slot files present on disk in chronological
// order. Filename order is unreliable once the encoder has wrapped, so
// modification times decide which slot is older.
func (f *Finalizer) orderedSlots() []string {
	type slot struct {
		path string
		mod  time.Time
	}
	var present []slot
	for i := 0; i < encoder.SlotCount; i++ {
		path := SlotPath(f.dir, i)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		present = append(present, slot{path: path, mod: info.ModTime()})
	}
	sort.Slice(present, func(i, j int) bool {
		return present[i].mod.Before(present[j].mod)
	})

	paths := make([]string, len(present))
	for i, s := range present {
		paths[i] = s.path
	}
	return paths
}

// writeManifest writes the concat protocol manifest: one file directive
// per line, newline-terminated, quoted for literal paths.
func writeManifest(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", escapePath(f))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	return nil
}

// escapePath escapes single quotes the way the concat demuxer expects
// inside a single-quoted file directive.
func escapePath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

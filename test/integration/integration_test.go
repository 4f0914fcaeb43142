package integration

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stuxvii/moment/internal/clip"
	"github.com/stuxvii/moment/internal/encoder"
	"github.com/stuxvii/moment/internal/session"
)

const saveKey uint16 = 99

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg is a shell script")
	}
}

func startPipeline(t *testing.T, h *Harness, ctx context.Context) (*session.Session, chan error) {
	t.Helper()
	logger := h.Logger()
	ffmpeg := encoder.NewFFmpeg(h.FFmpegPath, logger)
	finalizer := clip.New(h.Dir, ffmpeg, nil, logger)

	sess := session.New(session.Config{
		Source:    h.Source,
		Spawner:   ffmpeg,
		Finalizer: finalizer,
		Keyboard:  h.Keyboard,
		SaveKey:   saveKey,
		FPS:       100,
		Encoder: encoder.Params{
			Width:          h.Source.Width(),
			Height:         h.Source.Height(),
			FPS:            100,
			Bitrate:        10000000,
			Codec:          "libx264",
			SegmentSeconds: 10,
			SlotPattern:    clip.SlotPattern(h.Dir),
		},
		Logger: logger,
	})

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()
	return sess, done
}

func TestSaveHotkeyProducesClip(t *testing.T) {
	skipOnWindows(t)

	h := NewHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, done := startPipeline(t, h, ctx)

	h.WaitFor("frames streamed", func() bool {
		return sess.Stats()["frames_written"].(uint64) > 5
	})

	h.Keyboard.Set(saveKey, true)
	h.WaitFor("clip written", func() bool {
		return len(h.Glob("clip_*.mp4")) == 1
	})
	h.Keyboard.Set(saveKey, false)

	// The segment invocation carries the rotation contract; the concat
	// invocation runs in stream-copy mode.
	runs := h.Invocations()
	if len(runs) < 2 {
		t.Fatalf("Expected at least 2 ffmpeg runs, got %d", len(runs))
	}
	assertArgPair(t, runs[0], "-segment_wrap", "2")
	assertArgPair(t, runs[0], "-reset_timestamps", "1")
	assertArgPair(t, runs[0], "-f", "rawvideo")
	assertArgPair(t, runs[1], "-c", "copy")
	assertArgPair(t, runs[1], "-f", "concat")

	// The manifest never survives a finalize.
	if _, err := os.Stat(filepath.Join(h.Dir, "concat_list.txt")); !os.IsNotExist(err) {
		t.Errorf("Expected manifest to be deleted, stat: %v", err)
	}

	// Recording already moved on to the next segment.
	h.WaitFor("next segment spawned", func() bool {
		return sess.Stats()["segments"].(uint64) >= 2
	})

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestShutdownLeavesNoClip(t *testing.T) {
	skipOnWindows(t)

	h := NewHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	sess, done := startPipeline(t, h, ctx)

	h.WaitFor("frames streamed", func() bool {
		return sess.Stats()["frames_written"].(uint64) > 5
	})

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}

	if clips := h.Glob("clip_*.mp4"); len(clips) != 0 {
		t.Errorf("Expected no clip on shutdown, got %v", clips)
	}
	if got := sess.Stats()["segments"].(uint64); got != 1 {
		t.Errorf("Expected exactly one segment, got %d", got)
	}
}

func TestRotationBoundOnDisk(t *testing.T) {
	skipOnWindows(t)

	h := NewHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, done := startPipeline(t, h, ctx)

	// Run several segment rotations via the hotkey and check the slot
	// population never exceeds the wrap bound.
	for i := 0; i < 3; i++ {
		h.WaitFor("streaming", func() bool {
			return sess.Stats()["frames_written"].(uint64) > uint64(5*(i+1))
		})
		h.Keyboard.Set(saveKey, true)
		want := uint64(i + 1)
		h.WaitFor("finalize round", func() bool {
			return sess.Stats()["clips"].(uint64) == want
		})
		h.Keyboard.Set(saveKey, false)
		time.Sleep(20 * time.Millisecond)

		if slots := h.Glob("buffer*.mp4"); len(slots) > encoder.SlotCount {
			t.Fatalf("Expected at most %d slot files, got %v", encoder.SlotCount, slots)
		}
	}

	if clips := h.Glob("clip_*.mp4"); len(clips) == 0 {
		t.Error("Expected clips to accumulate")
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func assertArgPair(t *testing.T, args []string, flag, value string) {
	t.Helper()
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			if args[i+1] != value {
				t.Errorf("Expected %s %s, got %s %s", flag, value, flag, args[i+1])
			}
			return
		}
	}
	t.Errorf("Expected invocation to contain %s %s (args: %v)", flag, value, args)
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Pipeline did not stop in time")
		return nil
	}
}

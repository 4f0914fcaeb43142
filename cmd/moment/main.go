// The moment command records the screen continuously and saves the last
// few seconds to a clip file when a hotkey is pressed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stuxvii/moment/internal/capture"
	"github.com/stuxvii/moment/internal/clip"
	"github.com/stuxvii/moment/internal/config"
	"github.com/stuxvii/moment/internal/encoder"
	"github.com/stuxvii/moment/internal/hotkey"
	"github.com/stuxvii/moment/internal/session"
	"github.com/stuxvii/moment/internal/status"
)

const version = "1.0.0"

func main() {
	var (
		cfgPath     = flag.String("config", "moment.cfg", "Path to the configuration file")
		dir         = flag.String("dir", ".", "Directory for segment buffers and finished clips")
		ffmpegPath  = flag.String("ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
		statusAddr  = flag.String("status-addr", "127.0.0.1:8787", "Address for the status endpoint (empty to disable)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Moment - Instant Replay Screen Recorder v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Records the screen into two rotating buffer segments and, on the\n")
		fmt.Fprintf(os.Stderr, "configured hotkey, merges them into a timestamped clip.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nHotkeys:\n")
		fmt.Fprintf(os.Stderr, "  <key from config>   save the last recorded seconds as a clip\n")
		fmt.Fprintf(os.Stderr, "  Ctrl+F1             abort recording and exit\n")
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("Moment v%s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Info("moment starting", "version", version)

	if err := run(*cfgPath, *dir, *ffmpegPath, *statusAddr, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}

	logger.Info("moment stopped")
}

func run(cfgPath, dir, ffmpegPath, statusAddr string, logger *slog.Logger) error {
	params, err := loadParams(cfgPath, logger)
	if err != nil {
		return err
	}

	saveKey, ok := hotkey.Lookup(params.Key)
	if !ok {
		// An unknown key name is a config error like any other.
		logger.Warn("unknown hotkey in config, resetting to defaults", "key", params.Key)
		if params, err = config.Reset(cfgPath); err != nil {
			return fmt.Errorf("configuration reset failed: %w", err)
		}
		if saveKey, ok = hotkey.Lookup(params.Key); !ok {
			return fmt.Errorf("default hotkey %q not recognized", params.Key)
		}
	}

	src, err := capture.NewScrap()
	if err != nil {
		return fmt.Errorf("screen capture unavailable: %w", err)
	}
	defer src.Close()

	logger.Info("capture ready",
		"width", src.Width(),
		"height", src.Height(),
		"fps", params.FPS,
		"encoder", params.Encoder.Name(),
		"segment_seconds", params.SegmentSeconds,
		"hotkey", params.Key,
	)

	// Stale buffers from a previous run would corrupt chronological
	// ordering on the first finalize.
	for i := 0; i < encoder.SlotCount; i++ {
		os.Remove(clip.SlotPath(dir, i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal", "signal", sig)
		cancel()
	}()

	keyboard := hotkey.Listen()
	defer keyboard.Close()

	if watcher, err := config.Watch(cfgPath, logger); err != nil {
		logger.Warn("config watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	ffmpeg := encoder.NewFFmpeg(ffmpegPath, logger)
	finalizer := clip.New(dir, ffmpeg, clip.TerminalChime, logger)

	sess := session.New(session.Config{
		Source:    src,
		Spawner:   ffmpeg,
		Finalizer: finalizer,
		Keyboard:  keyboard,
		SaveKey:   saveKey,
		FPS:       params.FPS,
		Encoder: encoder.Params{
			Width:          src.Width(),
			Height:         src.Height(),
			FPS:            params.FPS,
			Bitrate:        params.Bitrate,
			Codec:          params.Encoder.Name(),
			SegmentSeconds: params.SegmentSeconds,
			SlotPattern:    clip.SlotPattern(dir),
		},
		Logger: logger,
	})

	if statusAddr != "" {
		srv := status.New(sess, statusAddr, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Warn("status server stopped", "error", err)
			}
		}()
	}

	return sess.Run(ctx)
}

// loadParams loads the configuration, resetting it to defaults on any
// validation error. A reset that fails to produce a loadable config is
// fatal.
func loadParams(path string, logger *slog.Logger) (config.Params, error) {
	params, err := config.Load(path)
	if err != nil {
		logger.Warn("invalid configuration, resetting to defaults", "error", err)
		if params, err = config.Reset(path); err != nil {
			return config.Params{}, fmt.Errorf("configuration reset failed: %w", err)
		}
	}
	return params, nil
}

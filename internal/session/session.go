// Package session implements the recording loop: it rotates segment
// encoder processes, feeds them paced frames, and reacts to hotkeys,
// write failures, and shutdown.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/stuxvii/moment/internal/capture"
	"github.com/stuxvii/moment/internal/encoder"
	"github.com/stuxvii/moment/internal/hotkey"
	"github.com/stuxvii/moment/internal/pacer"
)

// State names the rotator's current phase.
type State int

const (
	StateSpawning State = iota
	StateStreaming
	StateDraining
	StateFinalizing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateFinalizing:
		return "finalizing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Finalizer materializes the rotating segments into a clip. An empty
// path with a nil error means there was nothing to finalize.
type Finalizer interface {
	Finalize() (string, error)
}

// Config wires a session's collaborators and fixed parameters.
type Config struct {
	Source    capture.Source
	Spawner   encoder.Spawner
	Finalizer Finalizer
	Keyboard  hotkey.Keyboard

	// SaveKey is the key code that triggers a clip on its rising edge.
	SaveKey uint16

	// Encoder is passed identically on every segment spawn.
	Encoder encoder.Params

	// FPS is the pacing rate in frames per second.
	FPS int

	Logger *slog.Logger
}

// Session owns the segment rotation state machine. Run drives it on a
// single goroutine; Stats may be called from any goroutine.
type Session struct {
	cfg Config

	mu            sync.Mutex
	state         State
	ticks         uint64
	lateTicks     uint64
	framesWritten uint64
	framesSkipped uint64
	segments      uint64
	clips         uint64
}

// New creates a session from cfg.
func New(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// stopReason says why a streaming segment ended.
type stopReason int

const (
	stopClip        stopReason = iota // save hotkey edge: finalize, keep looping
	stopWriteFailed                   // encoder went away: finalize, keep looping
	stopAbort                         // abort combo: leave with no finalize
	stopShutdown                      // quit signal: leave, open segment abandoned
)

// Run drives the rotation loop until shutdown, abort, or a spawn
// failure. A spawn failure is fatal: without an encoder there is
// nothing to record. Recording restarts immediately after each
// finalize so coverage has no gap beyond spawn latency.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	for {
		s.setState(StateSpawning)
		id := uuid.NewString()[:8]
		logger := s.cfg.Logger.With("segment", id)

		seg, err := s.cfg.Spawner.Spawn(s.cfg.Encoder)
		if err != nil {
			return fmt.Errorf("failed to spawn segment encoder: %w", err)
		}
		s.bump(&s.segments)
		logger.Debug("segment started")

		reason := s.stream(ctx, seg, logger)

		s.setState(StateDraining)
		if err := seg.Close(); err != nil {
			// Expected when the write already failed; the process
			// was likely gone before the drain.
			logger.Debug("encoder drain reported error", "error", err)
		}

		switch reason {
		case stopAbort:
			logger.Info("recording aborted")
			return nil
		case stopShutdown:
			logger.Info("shutting down, open segment abandoned")
			return nil
		case stopClip, stopWriteFailed:
			s.setState(StateFinalizing)
			path, err := s.cfg.Finalizer.Finalize()
			switch {
			case err != nil:
				logger.Warn("finalize failed, recording continues", "error", err)
			case path != "":
				s.bump(&s.clips)
				logger.Info("clip saved", "path", path)
			}
		}
	}
}

// stream feeds paced frames into seg until something ends the segment.
func (s *Session) stream(ctx context.Context, seg encoder.Segment, logger *slog.Logger) stopReason {
	s.setState(StateStreaming)

	p := pacer.New(s.cfg.FPS)
	defer func() {
		s.mu.Lock()
		s.lateTicks += p.Late()
		s.mu.Unlock()
	}()

	// Prime the edge detector so a key still held from the press that
	// ended the previous segment does not trigger again.
	var edge hotkey.Edge
	edge.Rising(s.cfg.Keyboard.Pressed(s.cfg.SaveKey))

	for {
		p.Wait()
		s.bump(&s.ticks)

		frame, err := s.cfg.Source.Frame()
		if err != nil {
			// Expected on idle displays; never logged per tick.
			s.bump(&s.framesSkipped)
		} else if err := seg.Write(frame); err != nil {
			logger.Warn("encoder write failed, ending segment", "error", err)
			return stopWriteFailed
		} else {
			s.bump(&s.framesWritten)
		}

		if hotkey.AbortPressed(s.cfg.Keyboard) {
			return stopAbort
		}

		select {
		case <-ctx.Done():
			return stopShutdown
		default:
		}

		if edge.Rising(s.cfg.Keyboard.Pressed(s.cfg.SaveKey)) {
			return stopClip
		}
	}
}

func (s *Session) bump(counter *uint64) {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Stats returns a snapshot of the session counters for the status
// endpoint.
func (s *Session) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"state":          s.state.String(),
		"ticks":          s.ticks,
		"late_ticks":     s.lateTicks,
		"frames_written": s.framesWritten,
		"frames_skipped": s.framesSkipped,
		"segments":       s.segments,
		"clips":          s.clips,
	}
}

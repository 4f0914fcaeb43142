// Package capture supplies raw frames for the recording pipeline.
package capture

import "errors"

// ErrNoFrame reports that the backend had no new frame ready this tick.
// The caller skips the tick rather than stall the pipeline; encoder
// timing is driven by how much data reaches it, not by frame numbering.
var ErrNoFrame = errors.New("capture: no frame available")

// Source supplies raw BGRA frames of a fixed geometry.
type Source interface {
	// Frame returns the latest frame as a tightly packed
	// width*height*4 byte BGRA buffer, or ErrNoFrame when nothing new
	// is available. Frame errors are never fatal to the session.
	Frame() ([]byte, error)

	// Width is the frame width in pixels, fixed for the source's lifetime.
	Width() int

	// Height is the frame height in pixels, fixed for the source's lifetime.
	Height() int

	// Close releases the capture backend.
	Close() error
}

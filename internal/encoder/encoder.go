// Package encoder drives the external encoder process that turns raw
// frames into rotating video segments and concatenates finished ones.
package encoder

// SlotCount is the number of rotating segment files the encoder wraps
// across. With two slots the previous full segment is always retained
// while the current one is being written.
const SlotCount = 2

// Params fixes the invocation contract for one recording segment. The
// same values are passed on every spawn for the process lifetime.
type Params struct {
	// Width and Height are the raw frame dimensions in pixels.
	Width  int
	Height int

	// FPS is the input frame rate.
	FPS int

	// Bitrate is the target video bitrate in bits per second.
	Bitrate int

	// Codec is the encoder name (e.g. "libx264", "h264_nvenc").
	Codec string

	// SegmentSeconds is the duration of one rotating segment.
	SegmentSeconds int

	// SlotPattern is the segment output pattern (e.g. "buffer%d.mp4").
	SlotPattern string
}

// Segment is one live encoder invocation accepting raw BGRA frames.
type Segment interface {
	// Write streams one frame into the encoder's input. A failed
	// write means the process exited or stalled; the caller must end
	// the segment.
	Write(frame []byte) error

	// Close shuts the input stream and waits for the encoder to flush
	// the open segment file to a playable state and exit.
	Close() error
}

// Spawner launches segment encoder processes.
type Spawner interface {
	Spawn(p Params) (Segment, error)
}

// Concatenator merges already-encoded segment files listed in a concat
// manifest into one output file without re-encoding.
type Concatenator interface {
	Concat(manifestPath, outPath string) error
}

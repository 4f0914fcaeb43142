package encoder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
)

// FFmpeg spawns ffmpeg processes for segment encoding and stream-copy
// concatenation.
type FFmpeg struct {
	path   string
	logger *slog.Logger
}

// NewFFmpeg creates an FFmpeg runner. An empty path resolves "ffmpeg"
// from PATH.
func NewFFmpeg(path string, logger *slog.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, logger: logger}
}

// segmentArgs builds the per-segment invocation: raw BGRA frames on
// stdin, one H.264 stream cut by the segment muxer across SlotCount
// wrapping slot files with timestamps reset per file.
func segmentArgs(p Params) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-pixel_format", "bgra",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", strconv.Itoa(p.FPS),
		"-i", "-",
		"-c:v", p.Codec,
		"-tune", "zerolatency",
		"-b:v", fmt.Sprintf("%dk", p.Bitrate/1000),
		"-pix_fmt", "yuv420p",
		"-f", "segment",
		"-segment_time", strconv.Itoa(p.SegmentSeconds),
		"-segment_wrap", strconv.Itoa(SlotCount),
		"-reset_timestamps", "1",
		p.SlotPattern,
	}
}

// concatArgs builds the stream-copy concatenation invocation.
func concatArgs(manifestPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outPath,
	}
}

// Spawn launches one segment encoder process.
func (f *FFmpeg) Spawn(p Params) (Segment, error) {
	cmd := exec.Command(f.path, segmentArgs(p)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder %q: %w", f.path, err)
	}
	f.logger.Debug("encoder process started", "pid", cmd.Process.Pid, "codec", p.Codec)

	return &process{
		cmd:   cmd,
		stdin: stdin,
		// One full frame of buffering keeps per-row writes off the pipe.
		w: bufio.NewWriterSize(stdin, 4*p.Width*p.Height),
	}, nil
}

// Concat merges the manifest's files into outPath by stream copy.
func (f *FFmpeg) Concat(manifestPath, outPath string) error {
	cmd := exec.Command(f.path, concatArgs(manifestPath, outPath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("concat process failed: %w (output: %s)", err, bytes.TrimSpace(out))
	}
	f.logger.Debug("concat finished", "output", outPath)
	return nil
}

// process wraps one live ffmpeg segment invocation.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	w     *bufio.Writer
}

// Write streams one raw frame into the encoder.
func (p *process) Write(frame []byte) error {
	if _, err := p.w.Write(frame); err != nil {
		return fmt.Errorf("encoder write failed: %w", err)
	}
	return nil
}

// Close flushes and closes the input stream, then waits for the
// process. Closing stdin is the signal for ffmpeg to finish the open
// segment file and exit.
func (p *process) Close() error {
	flushErr := p.w.Flush()
	closeErr := p.stdin.Close()
	waitErr := p.cmd.Wait()
	for _, err := range []error{flushErr, closeErr, waitErr} {
		if err != nil {
			return fmt.Errorf("encoder drain: %w", err)
		}
	}
	return nil
}

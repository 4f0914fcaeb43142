package capture

import (
	"fmt"

	"github.com/cretz/go-scrap"
)

// ScrapSource captures the primary display through the scrap library.
type ScrapSource struct {
	cap *scrap.Capturer
	buf []byte
}

// NewScrap opens a capturer for the primary display. Failure here means
// screen capture is unavailable, which is fatal at startup.
func NewScrap() (*ScrapSource, error) {
	d, err := scrap.PrimaryDisplay()
	if err != nil {
		return nil, fmt.Errorf("no primary display: %w", err)
	}
	c, err := scrap.NewCapturer(d)
	if err != nil {
		return nil, fmt.Errorf("failed to open screen capturer: %w", err)
	}
	return &ScrapSource{
		cap: c,
		buf: make([]byte, 4*c.Width()*c.Height()),
	}, nil
}

// Width returns the display width in pixels.
func (s *ScrapSource) Width() int {
	return s.cap.Width()
}

// Height returns the display height in pixels.
func (s *ScrapSource) Height() int {
	return s.cap.Height()
}

// Frame returns the latest frame with stride padding stripped. The
// returned buffer is reused; callers must consume it before the next
// call.
func (s *ScrapSource) Frame() ([]byte, error) {
	pix, _, err := s.cap.Frame()
	if err != nil || pix == nil {
		return nil, ErrNoFrame
	}
	return compactRows([]byte(pix), s.buf, s.Width(), s.Height()), nil
}

// Close releases the capturer.
func (s *ScrapSource) Close() error {
	return nil
}

// compactRows copies the visible part of each row of src into dst.
// Capture backends pad rows to alignment boundaries; the encoder
// expects tightly packed width*4 byte rows.
func compactRows(src, dst []byte, width, height int) []byte {
	rowLen := 4 * width
	packed := rowLen * height
	if height == 0 || len(src) == packed {
		copy(dst, src)
		return dst[:len(src)]
	}
	stride := len(src) / height
	for row := 0; row < height; row++ {
		copy(dst[row*rowLen:(row+1)*rowLen], src[row*stride:row*stride+rowLen])
	}
	return dst[:packed]
}

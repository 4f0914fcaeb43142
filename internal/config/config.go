// Package config handles the persisted recorder configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultJSON is the configuration written when the file is absent or
// invalid. Kept as a literal so a reset produces a byte-identical file.
const DefaultJSON = `{"time":10,"fps":60,"kbps":10000,"key":"F10", "encoder": 0}`

// Encoder identifies one of the fixed video encoder choices.
type Encoder int

const (
	EncoderX264 Encoder = iota
	EncoderAMF
	EncoderNVENC
	EncoderQSV

	encoderMax = EncoderQSV
)

// Name returns the ffmpeg codec name for the encoder.
func (e Encoder) Name() string {
	switch e {
	case EncoderAMF:
		return "h264_amf"
	case EncoderNVENC:
		return "h264_nvenc"
	case EncoderQSV:
		return "h264_qsv"
	default:
		return "libx264"
	}
}

// Params is the immutable session parameter set. It is loaded once at
// startup and handed to the recording goroutine by value; nothing
// mutates it afterward.
type Params struct {
	// SegmentSeconds is the duration of one rotating segment.
	SegmentSeconds int

	// FPS is the capture and encode frame rate.
	FPS int

	// Bitrate is the target video bitrate in bits per second.
	Bitrate int

	// Key is the configured save-clip hotkey name (e.g. "F10").
	Key string

	// Encoder selects the video encoder.
	Encoder Encoder
}

// fileConfig mirrors the on-disk JSON. Pointer fields distinguish a
// missing key from a zero value.
type fileConfig struct {
	Time    *int    `json:"time"`
	FPS     *int    `json:"fps"`
	Kbps    *int    `json:"kbps"`
	Key     *string `json:"key"`
	Encoder *int    `json:"encoder"`
}

// Load reads the configuration at path. A missing file is created with
// defaults first. Malformed JSON or missing/invalid fields return an
// error; callers are expected to Reset and retry.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if writeErr := os.WriteFile(path, []byte(DefaultJSON), 0o644); writeErr != nil {
			return Params{}, fmt.Errorf("failed to create default config: %w", writeErr)
		}
		data = []byte(DefaultJSON)
	}
	return parse(data)
}

// Reset rewrites path with DefaultJSON and reloads it.
func Reset(path string) (Params, error) {
	if err := os.WriteFile(path, []byte(DefaultJSON), 0o644); err != nil {
		return Params{}, fmt.Errorf("failed to reset config: %w", err)
	}
	return Load(path)
}

func parse(data []byte) (Params, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Params{}, fmt.Errorf("invalid config JSON: %w", err)
	}

	for _, f := range []struct {
		name    string
		missing bool
	}{
		{"time", fc.Time == nil},
		{"fps", fc.FPS == nil},
		{"kbps", fc.Kbps == nil},
		{"key", fc.Key == nil},
		{"encoder", fc.Encoder == nil},
	} {
		if f.missing {
			return Params{}, fmt.Errorf("missing config field %q", f.name)
		}
	}

	if *fc.Time <= 0 {
		return Params{}, fmt.Errorf("config field \"time\" must be positive, got %d", *fc.Time)
	}
	if *fc.FPS <= 0 {
		return Params{}, fmt.Errorf("config field \"fps\" must be positive, got %d", *fc.FPS)
	}
	if *fc.Kbps <= 0 {
		return Params{}, fmt.Errorf("config field \"kbps\" must be positive, got %d", *fc.Kbps)
	}
	if *fc.Key == "" {
		return Params{}, fmt.Errorf("config field \"key\" must not be empty")
	}

	enc := Encoder(*fc.Encoder)
	if enc < EncoderX264 {
		enc = EncoderX264
	}
	if enc > encoderMax {
		enc = encoderMax
	}

	return Params{
		SegmentSeconds: *fc.Time,
		FPS:            *fc.FPS,
		Bitrate:        *fc.Kbps * 1000,
		Key:            *fc.Key,
		Encoder:        enc,
	}, nil
}

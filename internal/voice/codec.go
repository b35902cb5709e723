package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Decoder converts a client-submitted recording into a canonical PCM
// waveform with fixed parameters.
type Decoder interface {
	Decode(ctx context.Context, encoded []byte, format string) (Waveform, error)
}

// FFmpegDecoder shells out to ffmpeg to convert compressed containers
// (m4a, webm, ogg, mp3) to canonical PCM. WAV input that already carries the
// canonical parameters is parsed directly without a subprocess.
type FFmpegDecoder struct {
	// ScratchDir holds the temporary input/output files for one conversion.
	// Every file is removed before Decode returns, on success and failure.
	ScratchDir string
	// Binary is the ffmpeg executable, "ffmpeg" by default.
	Binary string
	// Timeout bounds one conversion.
	Timeout time.Duration
	// Target parameters, CanonicalParams by default.
	Target Params
}

// NewFFmpegDecoder returns a decoder writing scratch files under dir.
func NewFFmpegDecoder(dir string) *FFmpegDecoder {
	return &FFmpegDecoder{
		ScratchDir: dir,
		Binary:     "ffmpeg",
		Timeout:    10 * time.Second,
		Target:     CanonicalParams,
	}
}

var decodableFormats = map[string]bool{
	"m4a": true, "mp4": true, "aac": true,
	"webm": true, "ogg": true, "opus": true,
	"mp3": true, "wav": true,
}

func (d *FFmpegDecoder) Decode(ctx context.Context, encoded []byte, format string) (Waveform, error) {
	if len(encoded) == 0 {
		return Waveform{}, fmt.Errorf("%w: empty recording", ErrUnsupportedFormat)
	}
	if !decodableFormats[format] {
		return Waveform{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	// A WAV chunk already in the canonical shape skips the subprocess.
	if format == "wav" {
		w, err := ParseWAV(encoded)
		if err != nil {
			return Waveform{}, err
		}
		if w.Params == d.target() {
			return w, nil
		}
	}

	return d.convert(ctx, encoded, format)
}

func (d *FFmpegDecoder) target() Params {
	if d.Target == (Params{}) {
		return CanonicalParams
	}
	return d.Target
}

// convert round-trips the recording through scratch files. The deferred
// removals run on every exit path.
func (d *FFmpegDecoder) convert(ctx context.Context, encoded []byte, format string) (Waveform, error) {
	id := uuid.New().String()
	in := filepath.Join(d.ScratchDir, id+"."+format)
	out := filepath.Join(d.ScratchDir, id+".wav")

	if err := os.WriteFile(in, encoded, 0o600); err != nil {
		return Waveform{}, fmt.Errorf("writing scratch input: %w", err)
	}
	defer os.Remove(in)
	defer os.Remove(out)

	timeout := d.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := d.target()
	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"-sample_fmt", "s16",
		"-y", out,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return Waveform{}, fmt.Errorf("%w: ffmpeg: %v: %s", ErrUnsupportedFormat, err, output)
	}

	converted, err := os.ReadFile(out)
	if err != nil {
		return Waveform{}, fmt.Errorf("reading scratch output: %w", err)
	}

	return ParseWAV(converted)
}

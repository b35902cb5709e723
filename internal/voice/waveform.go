package voice

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Params describes the fixed waveform parameters of a decoded chunk. All
// chunks buffered for one turn must share identical parameters.
type Params struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Canonical parameters every decoded chunk is normalized to before analysis.
var CanonicalParams = Params{
	SampleRate: 16000,
	Channels:   1,
	BitDepth:   16,
}

// Waveform is an uncompressed PCM waveform: parameters plus raw little-endian
// sample data (no container header).
type Waveform struct {
	Params Params
	Data   []byte
}

// Duration returns the waveform length in seconds.
func (w Waveform) Duration() float64 {
	bytesPerSecond := w.Params.SampleRate * w.Params.Channels * w.Params.BitDepth / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(len(w.Data)) / float64(bytesPerSecond)
}

// ParseWAV extracts parameters and PCM data from a RIFF/WAVE container. It
// fails with ErrUnsupportedFormat when the header is truncated, the format is
// not PCM, or the channel/sample-rate metadata cannot be determined.
func ParseWAV(raw []byte) (Waveform, error) {
	if len(raw) < 12 || !bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return Waveform{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedFormat)
	}

	var params Params
	var data []byte
	sawFmt := false

	// Walk the chunk list; we only care about "fmt " and "data".
	off := 12
	for off+8 <= len(raw) {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(raw) {
			return Waveform{}, fmt.Errorf("%w: truncated %q chunk", ErrUnsupportedFormat, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Waveform{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedFormat)
			}
			audioFormat := binary.LittleEndian.Uint16(raw[body : body+2])
			if audioFormat != 1 { // PCM only
				return Waveform{}, fmt.Errorf("%w: non-PCM encoding %d", ErrUnsupportedFormat, audioFormat)
			}
			params.Channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			params.SampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			params.BitDepth = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			sawFmt = true
		case "data":
			data = raw[body : body+size]
		}

		// Chunks are word-aligned.
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !sawFmt || params.Channels == 0 || params.SampleRate == 0 {
		return Waveform{}, fmt.Errorf("%w: undeterminable waveform parameters", ErrUnsupportedFormat)
	}

	return Waveform{Params: params, Data: data}, nil
}

// EncodeWAV wraps a waveform in a minimal RIFF/WAVE container suitable for
// transmission to speech services.
func EncodeWAV(w Waveform) []byte {
	blockAlign := w.Params.Channels * w.Params.BitDepth / 8
	byteRate := w.Params.SampleRate * blockAlign

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(w.Data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(w.Params.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(w.Params.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(w.Params.BitDepth))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(w.Data)))
	buf.Write(w.Data)
	return buf.Bytes()
}

// Concat joins waveforms in order into one contiguous waveform. All inputs
// must share identical parameters; a mismatch indicates a codec adapter
// defect and fails with ErrInconsistentChunkFormat.
func Concat(chunks []Waveform) (Waveform, error) {
	if len(chunks) == 0 {
		return Waveform{}, fmt.Errorf("concat of zero chunks")
	}

	params := chunks[0].Params
	total := 0
	for i, c := range chunks {
		if c.Params != params {
			return Waveform{}, fmt.Errorf("%w: chunk %d has %+v, expected %+v",
				ErrInconsistentChunkFormat, i, c.Params, params)
		}
		total += len(c.Data)
	}

	data := make([]byte, 0, total)
	for _, c := range chunks {
		data = append(data, c.Data...)
	}
	return Waveform{Params: params, Data: data}, nil
}

package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pcm builds a canonical-parameter waveform whose data is the given bytes.
func pcm(data ...byte) Waveform {
	return Waveform{Params: CanonicalParams, Data: data}
}

func TestParseWAV(t *testing.T) {
	t.Run("round trips an encoded waveform", func(t *testing.T) {
		original := Waveform{
			Params: Params{SampleRate: 44100, Channels: 2, BitDepth: 16},
			Data:   []byte{1, 2, 3, 4, 5, 6, 7, 8},
		}

		parsed, err := ParseWAV(EncodeWAV(original))
		require.NoError(t, err)
		assert.Equal(t, original.Params, parsed.Params)
		assert.Equal(t, original.Data, parsed.Data)
	})

	t.Run("rejects data without a RIFF header", func(t *testing.T) {
		_, err := ParseWAV([]byte("this is not audio at all"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("rejects truncated input", func(t *testing.T) {
		encoded := EncodeWAV(pcm(1, 2, 3, 4))
		_, err := ParseWAV(encoded[:20])
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("rejects non-PCM encodings", func(t *testing.T) {
		encoded := EncodeWAV(pcm(1, 2, 3, 4))
		// Flip the audio format field in the fmt chunk to IEEE float.
		encoded[20] = 3
		_, err := ParseWAV(encoded)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestWaveformDuration(t *testing.T) {
	// 16kHz mono 16-bit is 32000 bytes per second.
	w := Waveform{Params: CanonicalParams, Data: make([]byte, 32000)}
	assert.InDelta(t, 1.0, w.Duration(), 1e-9)

	assert.Zero(t, Waveform{}.Duration())
}

func TestConcat(t *testing.T) {
	t.Run("joins chunks in arrival order", func(t *testing.T) {
		out, err := Concat([]Waveform{pcm(1, 2), pcm(3, 4), pcm(5, 6)})
		require.NoError(t, err)
		assert.Equal(t, CanonicalParams, out.Params)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out.Data)
	})

	t.Run("single chunk passes through", func(t *testing.T) {
		out, err := Concat([]Waveform{pcm(9, 9)})
		require.NoError(t, err)
		assert.Equal(t, []byte{9, 9}, out.Data)
	})

	t.Run("rejects mismatched parameters", func(t *testing.T) {
		odd := Waveform{
			Params: Params{SampleRate: 8000, Channels: 1, BitDepth: 16},
			Data:   []byte{7, 7},
		}
		_, err := Concat([]Waveform{pcm(1, 2), odd})
		assert.ErrorIs(t, err, ErrInconsistentChunkFormat)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := Concat(nil)
		assert.Error(t, err)
	})
}

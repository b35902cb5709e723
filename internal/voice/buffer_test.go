package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnBuffer(t *testing.T) {
	t.Run("silence while idle is a no-op", func(t *testing.T) {
		b := NewTurnBuffer()

		_, flushed, err := b.Push(pcm(1, 2), false)
		require.NoError(t, err)
		assert.False(t, flushed)
		assert.Equal(t, StateIdle, b.State())
		assert.Zero(t, b.Len())
	})

	t.Run("speech accumulates until a silence boundary", func(t *testing.T) {
		b := NewTurnBuffer()

		for _, chunk := range []Waveform{pcm(1, 2), pcm(3, 4), pcm(5, 6)} {
			_, flushed, err := b.Push(chunk, true)
			require.NoError(t, err)
			assert.False(t, flushed)
			assert.Equal(t, StateAccumulating, b.State())
		}
		assert.Equal(t, 3, b.Len())

		turn, flushed, err := b.Push(pcm(0, 0), true)
		require.NoError(t, err)
		assert.False(t, flushed, "speech must not flush")
		_ = turn
	})

	t.Run("silence flushes the concatenated run in order", func(t *testing.T) {
		b := NewTurnBuffer()

		for _, chunk := range []Waveform{pcm(1, 2), pcm(3, 4), pcm(5, 6)} {
			_, _, err := b.Push(chunk, true)
			require.NoError(t, err)
		}

		turn, flushed, err := b.Push(pcm(0, 0), false)
		require.NoError(t, err)
		require.True(t, flushed)
		assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, turn.Data)
		assert.Equal(t, StateIdle, b.State())
		assert.Zero(t, b.Len())
	})

	t.Run("the silence chunk itself is not part of the turn", func(t *testing.T) {
		b := NewTurnBuffer()

		_, _, err := b.Push(pcm(1, 2), true)
		require.NoError(t, err)

		turn, flushed, err := b.Push(pcm(9, 9), false)
		require.NoError(t, err)
		require.True(t, flushed)
		assert.Equal(t, []byte{1, 2}, turn.Data)
	})

	t.Run("buffer is reusable after a flush", func(t *testing.T) {
		b := NewTurnBuffer()

		_, _, err := b.Push(pcm(1, 1), true)
		require.NoError(t, err)
		_, flushed, err := b.Push(pcm(0, 0), false)
		require.NoError(t, err)
		require.True(t, flushed)

		_, _, err = b.Push(pcm(2, 2), true)
		require.NoError(t, err)
		turn, flushed, err := b.Push(pcm(0, 0), false)
		require.NoError(t, err)
		require.True(t, flushed)
		assert.Equal(t, []byte{2, 2}, turn.Data)
	})

	t.Run("parameter mismatch discards the run and returns to idle", func(t *testing.T) {
		b := NewTurnBuffer()

		odd := Waveform{
			Params: Params{SampleRate: 8000, Channels: 1, BitDepth: 16},
			Data:   []byte{7, 7},
		}
		_, _, err := b.Push(pcm(1, 2), true)
		require.NoError(t, err)
		_, _, err = b.Push(odd, true)
		require.NoError(t, err)

		_, flushed, err := b.Push(pcm(0, 0), false)
		assert.ErrorIs(t, err, ErrInconsistentChunkFormat)
		assert.False(t, flushed)
		assert.Equal(t, StateIdle, b.State())
		assert.Zero(t, b.Len())
	})

	t.Run("reset clears a partial run", func(t *testing.T) {
		b := NewTurnBuffer()

		_, _, err := b.Push(pcm(1, 2), true)
		require.NoError(t, err)
		b.Reset()

		assert.Equal(t, StateIdle, b.State())
		_, flushed, err := b.Push(pcm(0, 0), false)
		require.NoError(t, err)
		assert.False(t, flushed)
	})
}

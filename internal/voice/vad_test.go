package voice

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// samples packs int16 values into a canonical-parameter waveform.
func samples(values ...int16) Waveform {
	data := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return Waveform{Params: CanonicalParams, Data: data}
}

func TestEnergyClassifier(t *testing.T) {
	c := NewEnergyClassifier()

	t.Run("loud chunk is speech", func(t *testing.T) {
		assert.True(t, c.Classify(samples(5000, -5000, 4000, -4000)))
	})

	t.Run("quiet chunk is silence", func(t *testing.T) {
		assert.False(t, c.Classify(samples(10, -10, 5, -5)))
	})

	t.Run("empty chunk is silence", func(t *testing.T) {
		assert.False(t, c.Classify(Waveform{Params: CanonicalParams}))
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		chunk := samples(250, -310, 280, -295)
		first := c.Classify(chunk)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, c.Classify(chunk))
		}
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		strict := &EnergyClassifier{Threshold: 10000}
		assert.False(t, strict.Classify(samples(5000, -5000)))

		lax := &EnergyClassifier{Threshold: 1}
		assert.True(t, lax.Classify(samples(10, -10)))
	})
}

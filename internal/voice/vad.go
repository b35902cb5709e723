package voice

import (
	"encoding/binary"
	"math"
)

// Classifier decides whether one short waveform chunk contains speech. The
// pipeline only depends on this two-valued contract; implementations must be
// deterministic for identical input so results are reproducible.
type Classifier interface {
	Classify(chunk Waveform) bool
}

// EnergyClassifier is the default voice activity model: a fixed RMS energy
// gate over 16-bit samples. It is a stand-in for a real VAD model and can be
// swapped without touching the pipeline.
type EnergyClassifier struct {
	// Threshold is the minimum RMS amplitude considered speech.
	Threshold float64
}

// NewEnergyClassifier returns a classifier with the default gate.
func NewEnergyClassifier() *EnergyClassifier {
	return &EnergyClassifier{Threshold: 300.0}
}

func (c *EnergyClassifier) Classify(chunk Waveform) bool {
	if chunk.Params.BitDepth != 16 || len(chunk.Data) < 2 {
		return false
	}

	var sum float64
	n := len(chunk.Data) / 2
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(chunk.Data[i*2 : i*2+2])))
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(n))
	return rms >= c.Threshold
}

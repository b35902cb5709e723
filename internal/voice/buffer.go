package voice

// BufferState is the turn buffer's position in its state machine.
type BufferState int

const (
	// StateIdle means no speech is buffered.
	StateIdle BufferState = iota
	// StateAccumulating means one or more speech chunks are buffered and no
	// silence boundary has closed the run yet.
	StateAccumulating
)

// TurnBuffer accumulates consecutive speech-bearing chunks for one
// conversation and flushes them into a single contiguous waveform when a
// silence boundary is detected. It has no internal locking: the caller must
// serialize chunks for the same conversation in arrival order.
type TurnBuffer struct {
	chunks []Waveform
	state  BufferState
}

// NewTurnBuffer returns an empty buffer in the idle state.
func NewTurnBuffer() *TurnBuffer {
	return &TurnBuffer{state: StateIdle}
}

// State reports the current state.
func (b *TurnBuffer) State() BufferState {
	return b.state
}

// Len reports the number of buffered chunks.
func (b *TurnBuffer) Len() int {
	return len(b.chunks)
}

// Push feeds one classified chunk into the state machine.
//
// A speech chunk is appended and the buffer accumulates. Silence while
// accumulating flushes: the buffered chunks are concatenated in arrival
// order, the buffer returns to idle, and the concatenation is returned as a
// completed turn. Silence while idle is a no-op.
//
// A parameter mismatch during concatenation fails with
// ErrInconsistentChunkFormat; the buffer is cleared so the defect cannot
// corrupt the next utterance, and no turn is emitted.
func (b *TurnBuffer) Push(chunk Waveform, speech bool) (Waveform, bool, error) {
	if speech {
		b.chunks = append(b.chunks, chunk)
		b.state = StateAccumulating
		return Waveform{}, false, nil
	}

	if b.state == StateIdle {
		return Waveform{}, false, nil
	}

	turn, err := Concat(b.chunks)
	b.Reset()
	if err != nil {
		return Waveform{}, false, err
	}
	return turn, true, nil
}

// Reset discards all buffered chunks and returns to idle. Called on flush and
// on conversation teardown.
func (b *TurnBuffer) Reset() {
	b.chunks = nil
	b.state = StateIdle
}

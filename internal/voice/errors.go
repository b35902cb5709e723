package voice

import "errors"

// Pipeline errors. Each stage of the voice turn pipeline fails with exactly
// one of these; the orchestrator converts them into the per-chunk response
// error code rather than letting them escape to the transport layer.
var (
	// ErrUnsupportedFormat means the codec adapter could not determine the
	// channel/sample-rate metadata of a client-submitted recording.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInconsistentChunkFormat means buffered chunks disagree on waveform
	// parameters. This is an adapter defect, not a user error.
	ErrInconsistentChunkFormat = errors.New("inconsistent chunk format")

	// ErrTranscriptionUnavailable means the speech-to-text service failed at
	// the transport level or returned a non-success response.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")

	// ErrGenerationUnavailable means the generation service rejected the
	// submit request.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrGenerationTimeout means the poll loop exhausted its attempt budget
	// before the generation job completed.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrMalformedGenerationOutput means the raw model output did not contain
	// the answer delimiter.
	ErrMalformedGenerationOutput = errors.New("malformed generation output")

	// ErrSynthesisUnavailable means the text-to-speech service failed.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")

	// ErrPersistenceFailure means the synthesized audio could not be written
	// to blob storage.
	ErrPersistenceFailure = errors.New("audio persistence failure")
)

// ErrorCode maps a pipeline error to the stable code reported to clients.
// Unknown errors map to "InternalError".
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrInconsistentChunkFormat):
		return "InconsistentChunkFormat"
	case errors.Is(err, ErrTranscriptionUnavailable):
		return "TranscriptionUnavailable"
	case errors.Is(err, ErrGenerationUnavailable):
		return "GenerationUnavailable"
	case errors.Is(err, ErrGenerationTimeout):
		return "GenerationTimeout"
	case errors.Is(err, ErrMalformedGenerationOutput):
		return "MalformedGenerationOutput"
	case errors.Is(err, ErrSynthesisUnavailable):
		return "SynthesisUnavailable"
	case errors.Is(err, ErrPersistenceFailure):
		return "PersistenceFailure"
	default:
		return "InternalError"
	}
}

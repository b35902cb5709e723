package voice

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughDecoder turns the raw chunk bytes directly into canonical PCM
// data, so tests control the classifier through the first byte.
type passthroughDecoder struct {
	err error
}

func (d *passthroughDecoder) Decode(ctx context.Context, encoded []byte, format string) (Waveform, error) {
	if d.err != nil {
		return Waveform{}, d.err
	}
	return Waveform{Params: CanonicalParams, Data: encoded}, nil
}

// firstByteClassifier calls a chunk speech when its first data byte is
// nonzero.
type firstByteClassifier struct{}

func (firstByteClassifier) Classify(chunk Waveform) bool {
	return len(chunk.Data) > 0 && chunk.Data[0] != 0
}

type stubSTT struct {
	text    string
	err     error
	calls   int
	gotTurn Waveform
}

func (s *stubSTT) Transcribe(ctx context.Context, turn Waveform) (string, error) {
	s.calls++
	s.gotTurn = turn
	return s.text, s.err
}

type stubTTS struct {
	audio    []byte
	err      error
	gotText  string
	gotVoice string
}

func (s *stubTTS) Synthesize(ctx context.Context, text, voiceReference string) ([]byte, error) {
	s.gotText = text
	s.gotVoice = voiceReference
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

type stubStore struct {
	err     error
	gotKey  string
	gotData []byte
}

func (s *stubStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.gotKey = key
	s.gotData = data
	if s.err != nil {
		return "", s.err
	}
	return "https://blobs.example/audio-messages/" + key, nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error { return nil }

type stubBots struct {
	profile BotProfile
	err     error
}

func (s *stubBots) LookupBot(ctx context.Context, botID uint) (BotProfile, error) {
	if s.err != nil {
		return BotProfile{}, s.err
	}
	return s.profile, nil
}

type stubMessages struct {
	nextID      uint
	createErr   error
	attachErr   error
	gotText     string
	attachedURL string
}

func (s *stubMessages) CreateBotMessage(ctx context.Context, chatID, botID uint, text string) (uint, error) {
	s.gotText = text
	if s.createErr != nil {
		return 0, s.createErr
	}
	return s.nextID, nil
}

func (s *stubMessages) AttachAudio(ctx context.Context, messageID uint, url string) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attachedURL = url
	return nil
}

type pipelineFixture struct {
	orchestrator *Orchestrator
	decoder      *passthroughDecoder
	stt          *stubSTT
	gen          *scriptedGeneration
	tts          *stubTTS
	store        *stubStore
	bots         *stubBots
	messages     *stubMessages
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		decoder: &passthroughDecoder{},
		stt:     &stubSTT{text: "Tell me a story"},
		gen: &scriptedGeneration{results: []PollResult{
			{State: JobCompleted, Output: "[/INST] Once upon a midnight dreary]"},
		}},
		tts:   &stubTTS{audio: []byte("mp3-bytes")},
		store: &stubStore{},
		bots: &stubBots{profile: BotProfile{
			ID:            3,
			Name:          "Sherlock Holmes",
			Description:   "A consulting detective of singular focus.",
			VoiceEndpoint: "https://api.elevenlabs.io/v1/text-to-speech/abc123",
		}},
		messages: &stubMessages{nextID: 42},
	}
	f.orchestrator = NewOrchestrator(Deps{
		Decoder:    f.decoder,
		Classifier: firstByteClassifier{},
		STT:        f.stt,
		Generation: f.gen,
		Synthesis:  f.tts,
		Store:      f.store,
		Bots:       f.bots,
		Messages:   f.messages,
		Poll:       fastPoll(10),
	})
	return f
}

var (
	speechChunk  = []byte{1, 2, 3, 4}
	silenceChunk = []byte{0, 0, 0, 0}
)

func TestOrchestratorProcessChunk(t *testing.T) {
	ctx := context.Background()

	t.Run("mid-utterance chunks report an incomplete turn", func(t *testing.T) {
		f := newPipelineFixture()

		res := f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		assert.Equal(t, Result{}, res)
		assert.Zero(t, f.stt.calls)
		assert.Equal(t, StateAccumulating, f.orchestrator.BufferState(1, 3))
	})

	t.Run("silence boundary completes a full turn", func(t *testing.T) {
		f := newPipelineFixture()

		for i := 0; i < 3; i++ {
			res := f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
			require.False(t, res.TurnComplete)
		}
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		require.True(t, res.TurnComplete)
		assert.Empty(t, res.ErrorCode)
		assert.Equal(t, "Tell me a story", res.Transcript)
		assert.Equal(t, "Once upon a midnight dreary", res.ReplyText)
		assert.Equal(t, "https://blobs.example/audio-messages/42.mp3", res.ReplyAudioURL)

		// The transcribed turn is the three speech chunks joined in order,
		// without the silence chunk.
		assert.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}, f.stt.gotTurn.Data)

		// Reply persisted before upload, keyed by the message id.
		assert.Equal(t, "Once upon a midnight dreary", f.messages.gotText)
		assert.Equal(t, "42.mp3", f.store.gotKey)
		assert.Equal(t, []byte("mp3-bytes"), f.store.gotData)
		assert.Equal(t, res.ReplyAudioURL, f.messages.attachedURL)

		// Synthesis used the bot's stored voice endpoint.
		assert.Equal(t, f.bots.profile.VoiceEndpoint, f.tts.gotVoice)
		assert.Equal(t, "Once upon a midnight dreary", f.tts.gotText)

		assert.Equal(t, StateIdle, f.orchestrator.BufferState(1, 3))
	})

	t.Run("undecodable chunk is rejected without touching the buffer", func(t *testing.T) {
		f := newPipelineFixture()
		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		f.decoder.err = fmt.Errorf("%w: no idea", ErrUnsupportedFormat)

		res := f.orchestrator.ProcessChunk(ctx, 1, 3, []byte("junk"), "xyz")
		assert.Equal(t, Result{ErrorCode: "UnsupportedFormat"}, res)
		assert.Equal(t, StateAccumulating, f.orchestrator.BufferState(1, 3))
	})

	t.Run("transcription failure still completes the turn", func(t *testing.T) {
		f := newPipelineFixture()
		f.stt.err = fmt.Errorf("%w: 503", ErrTranscriptionUnavailable)

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.Equal(t, Result{TurnComplete: true, ErrorCode: "TranscriptionUnavailable"}, res)
		assert.Zero(t, f.gen.submits)
		assert.Equal(t, StateIdle, f.orchestrator.BufferState(1, 3), "buffer must be idle after a failed flush")
	})

	t.Run("empty transcript ends the turn without a reply", func(t *testing.T) {
		f := newPipelineFixture()
		f.stt.text = ""

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.Equal(t, Result{TurnComplete: true}, res)
		assert.Zero(t, f.gen.submits)
	})

	t.Run("generation timeout is reported with the transcript", func(t *testing.T) {
		f := newPipelineFixture()
		f.gen.results = nil

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.True(t, res.TurnComplete)
		assert.Equal(t, "GenerationTimeout", res.ErrorCode)
		assert.Equal(t, "Tell me a story", res.Transcript)
		assert.Equal(t, 10, f.gen.polls)
		assert.Equal(t, StateIdle, f.orchestrator.BufferState(1, 3))
	})

	t.Run("synthesis failure keeps the generated text", func(t *testing.T) {
		f := newPipelineFixture()
		f.tts.err = fmt.Errorf("%w: 429", ErrSynthesisUnavailable)

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.True(t, res.TurnComplete)
		assert.Equal(t, "SynthesisUnavailable", res.ErrorCode)
		assert.Equal(t, "Once upon a midnight dreary", res.ReplyText)
		assert.Empty(t, res.ReplyAudioURL)
	})

	t.Run("upload failure is a persistence failure", func(t *testing.T) {
		f := newPipelineFixture()
		f.store.err = fmt.Errorf("%w: 403", ErrPersistenceFailure)

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.True(t, res.TurnComplete)
		assert.Equal(t, "PersistenceFailure", res.ErrorCode)
		assert.Empty(t, res.ReplyAudioURL)
	})

	t.Run("message save failure is a persistence failure", func(t *testing.T) {
		f := newPipelineFixture()
		f.messages.createErr = fmt.Errorf("db down")

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")

		assert.Equal(t, "PersistenceFailure", res.ErrorCode)
		assert.Empty(t, f.store.gotKey, "no upload without a message id")
	})

	t.Run("conversations buffer independently", func(t *testing.T) {
		f := newPipelineFixture()

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		f.orchestrator.ProcessChunk(ctx, 2, 3, speechChunk, "wav")
		assert.Equal(t, StateAccumulating, f.orchestrator.BufferState(1, 3))

		res := f.orchestrator.ProcessChunk(ctx, 2, 3, silenceChunk, "wav")
		require.True(t, res.TurnComplete)

		// Chat 1's partial utterance is untouched.
		assert.Equal(t, StateAccumulating, f.orchestrator.BufferState(1, 3))
		assert.Equal(t, []byte{1, 2, 3, 4}, f.stt.gotTurn.Data)
	})

	t.Run("ending a conversation discards its partial utterance", func(t *testing.T) {
		f := newPipelineFixture()

		f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
		f.orchestrator.EndConversation(1, 3)

		res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")
		assert.Equal(t, Result{}, res)
		assert.Zero(t, f.stt.calls)
	})
}

func TestOrchestratorStateTableStaysBounded(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture()

	// A flushed turn leaves no state entry behind.
	f.orchestrator.ProcessChunk(ctx, 1, 3, speechChunk, "wav")
	assert.Equal(t, 1, f.orchestrator.ActiveConversations())

	res := f.orchestrator.ProcessChunk(ctx, 1, 3, silenceChunk, "wav")
	require.True(t, res.TurnComplete)
	assert.Zero(t, f.orchestrator.ActiveConversations())

	// Silence-only traffic never pins an entry, however many chats send it.
	for chatID := uint(1); chatID <= 50; chatID++ {
		f.orchestrator.ProcessChunk(ctx, chatID, 3, silenceChunk, "wav")
	}
	assert.Zero(t, f.orchestrator.ActiveConversations())

	// Only conversations mid-utterance are held.
	f.orchestrator.ProcessChunk(ctx, 7, 3, speechChunk, "wav")
	assert.Equal(t, 1, f.orchestrator.ActiveConversations())
	f.orchestrator.EndConversation(7, 3)
	assert.Zero(t, f.orchestrator.ActiveConversations())
}

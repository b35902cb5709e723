package voice

import (
	"context"
	"fmt"
	"sync"

	"talktolisten/backend/pkg/logger"
)

// BotProfile is the character context the pipeline needs for one reply: the
// prompt material and the synthesis voice.
type BotProfile struct {
	ID            uint
	Name          string
	Description   string
	VoiceEndpoint string
}

// BotDirectory resolves a bot id to its profile.
type BotDirectory interface {
	LookupBot(ctx context.Context, botID uint) (BotProfile, error)
}

// MessageSink persists the generated reply as a chat message and later
// attaches the synthesized audio reference to it. The blob key is derived
// from the message id it returns.
type MessageSink interface {
	CreateBotMessage(ctx context.Context, chatID uint, botID uint, text string) (uint, error)
	AttachAudio(ctx context.Context, messageID uint, url string) error
}

// Result is the per-chunk outcome returned to the transport layer. The
// common case is TurnComplete=false: the chunk was mid-utterance and was
// buffered. ErrorCode is empty on success.
type Result struct {
	TurnComplete  bool   `json:"turn_complete"`
	Transcript    string `json:"transcript,omitempty"`
	ReplyText     string `json:"reply_text,omitempty"`
	ReplyAudioURL string `json:"reply_audio_url,omitempty"`
	ErrorCode     string `json:"error,omitempty"`
}

// characterSystemPrompt frames every generation request.
const characterSystemPrompt = "Embody the specified character, complete with their background, core traits, relationships, and goals. Use a distinct speaking style reflective of their unique personality and environment and answer in short. Communicate using their distinct manner of speech, reflecting their unique personality and setting. Responses should be brief and omit direct self-reference by name, focusing solely on providing character-driven insights."

// conversationState is the per-(chat, bot) voice state. Created on first
// chunk, cleared when a turn flushes or the conversation is torn down.
type conversationState struct {
	buffer *TurnBuffer
}

// Orchestrator drives the voice turn pipeline once per inbound chunk:
// decode, classify, buffer, and, when a silence boundary closes a turn,
// transcribe, generate, synthesize, and persist the spoken reply.
//
// Per-conversation state has no internal locking; the transport layer must
// serialize chunks for the same conversation in arrival order. Chunks for
// different conversations are processed concurrently.
type Orchestrator struct {
	decoder    Decoder
	classifier Classifier
	stt        TranscriptionService
	gen        GenerationService
	tts        SynthesisService
	store      BlobStore
	bots       BotDirectory
	messages   MessageSink

	poll    PollConfig
	log     *logger.Logger
	metrics *Metrics

	mu     sync.Mutex
	states map[string]*conversationState
}

// Deps carries the pipeline collaborators.
type Deps struct {
	Decoder    Decoder
	Classifier Classifier
	STT        TranscriptionService
	Generation GenerationService
	Synthesis  SynthesisService
	Store      BlobStore
	Bots       BotDirectory
	Messages   MessageSink
	Poll       PollConfig
	Logger     *logger.Logger
	Metrics    *Metrics
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Poll.MaxAttempts <= 0 {
		deps.Poll = DefaultPollConfig()
	}
	if deps.Logger == nil {
		if deps.Logger = logger.GetGlobal(); deps.Logger == nil {
			deps.Logger = logger.New(logger.DefaultConfig())
		}
	}
	return &Orchestrator{
		decoder:    deps.Decoder,
		classifier: deps.Classifier,
		stt:        deps.STT,
		gen:        deps.Generation,
		tts:        deps.Synthesis,
		store:      deps.Store,
		bots:       deps.Bots,
		messages:   deps.Messages,
		poll:       deps.Poll,
		log:        deps.Logger,
		metrics:    deps.Metrics,
	}
}

func conversationKey(chatID, botID uint) string {
	return fmt.Sprintf("%d:%d", chatID, botID)
}

// state returns the conversation's voice state, creating it on first use.
func (o *Orchestrator) state(key string) *conversationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.states == nil {
		o.states = make(map[string]*conversationState)
	}
	st, ok := o.states[key]
	if !ok {
		st = &conversationState{buffer: NewTurnBuffer()}
		o.states[key] = st
	}
	return st
}

// evictIdle drops the conversation's state entry when its buffer is idle.
// An idle buffer holds nothing, so the entry can be rebuilt on the next
// chunk; without this, REST conversations that never send an explicit
// teardown would pin an entry forever.
func (o *Orchestrator) evictIdle(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.states[key]; ok && st.buffer.State() == StateIdle {
		delete(o.states, key)
	}
}

// EndConversation tears down the voice state for a (chat, bot) pair,
// discarding any partially buffered utterance.
func (o *Orchestrator) EndConversation(chatID, botID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.states, conversationKey(chatID, botID))
}

// ActiveConversations reports how many conversations currently hold voice
// state.
func (o *Orchestrator) ActiveConversations() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.states)
}

// BufferState exposes the turn buffer state for a conversation, primarily
// for tests and the health surface.
func (o *Orchestrator) BufferState(chatID, botID uint) BufferState {
	return o.state(conversationKey(chatID, botID)).buffer.State()
}

// ProcessChunk handles one inbound audio chunk. It never panics across a
// stage failure and never leaves the turn buffer accumulating after a flush
// attempt: every failure past the silence boundary is converted into a
// structured error result with the buffer back at idle.
func (o *Orchestrator) ProcessChunk(ctx context.Context, chatID, botID uint, encoded []byte, format string) Result {
	o.metrics.recordChunk(ctx)
	log := o.log.WithConversation(chatID, botID)

	chunk, err := o.decoder.Decode(ctx, encoded, format)
	if err != nil {
		o.metrics.recordFailure(ctx, "decode")
		log.Warn("chunk rejected by codec adapter", "error", err.Error(), "format", format)
		return Result{ErrorCode: ErrorCode(err)}
	}

	speech := o.classifier.Classify(chunk)

	key := conversationKey(chatID, botID)
	st := o.state(key)
	// Keep the state table bounded to conversations mid-utterance.
	defer o.evictIdle(key)

	turn, flushed, err := st.buffer.Push(chunk, speech)
	if err != nil {
		// Mismatched chunk parameters mean the codec adapter misbehaved.
		// The buffered run is unusable; it was dropped so the next
		// utterance starts clean.
		o.metrics.recordFailure(ctx, "buffer")
		log.LogError(err, "turn buffer defect, run discarded")
		return Result{ErrorCode: ErrorCode(err)}
	}
	if !flushed {
		return Result{}
	}

	result := o.completeTurn(ctx, chatID, botID, turn, log)
	if result.ErrorCode != "" {
		o.metrics.recordTurn(ctx, "error")
	} else if result.ReplyAudioURL != "" {
		o.metrics.recordTurn(ctx, "reply")
	} else {
		o.metrics.recordTurn(ctx, "no_reply")
	}
	return result
}

// completeTurn runs the downstream half of the pipeline for one flushed
// turn. The buffer is already idle when this is called.
func (o *Orchestrator) completeTurn(ctx context.Context, chatID, botID uint, turn Waveform, log *logger.Logger) Result {
	log.Info("turn complete", "duration_s", turn.Duration())

	transcript, err := o.stt.Transcribe(ctx, turn)
	if err != nil {
		o.metrics.recordFailure(ctx, "transcribe")
		log.LogError(err, "transcription failed")
		return Result{TurnComplete: true, ErrorCode: ErrorCode(err)}
	}
	if transcript == "" {
		// Recognized nothing: not a failure, the turn just ends without a
		// reply.
		log.Info("empty recognition result, no reply")
		return Result{TurnComplete: true}
	}

	bot, err := o.bots.LookupBot(ctx, botID)
	if err != nil {
		o.metrics.recordFailure(ctx, "bot_lookup")
		log.LogError(err, "bot lookup failed")
		return Result{TurnComplete: true, Transcript: transcript, ErrorCode: ErrorCode(err)}
	}

	prompt := fmt.Sprintf("<character_name>%s</s>\n<|character|>%s</s>\n<|user|>%s</s>\n<|response|>\n",
		bot.Name, bot.Description, transcript)

	reply, err := GenerateReply(ctx, o.gen, characterSystemPrompt, prompt, o.poll)
	if err != nil {
		o.metrics.recordFailure(ctx, "generate")
		log.LogError(err, "generation failed")
		return Result{TurnComplete: true, Transcript: transcript, ErrorCode: ErrorCode(err)}
	}

	audio, err := o.tts.Synthesize(ctx, reply, bot.VoiceEndpoint)
	if err != nil {
		o.metrics.recordFailure(ctx, "synthesize")
		log.LogError(err, "synthesis failed")
		return Result{TurnComplete: true, Transcript: transcript, ReplyText: reply, ErrorCode: ErrorCode(err)}
	}

	messageID, err := o.messages.CreateBotMessage(ctx, chatID, botID, reply)
	if err != nil {
		o.metrics.recordFailure(ctx, "persist")
		log.LogError(err, "saving reply message failed")
		return Result{TurnComplete: true, Transcript: transcript, ReplyText: reply, ErrorCode: ErrorCode(ErrPersistenceFailure)}
	}

	url, err := o.store.Put(ctx, fmt.Sprintf("%d.mp3", messageID), audio, "audio/mpeg")
	if err != nil {
		o.metrics.recordFailure(ctx, "persist")
		log.LogError(err, "storing reply audio failed", "message_id", messageID)
		return Result{TurnComplete: true, Transcript: transcript, ReplyText: reply, ErrorCode: ErrorCode(err)}
	}

	if err := o.messages.AttachAudio(ctx, messageID, url); err != nil {
		o.metrics.recordFailure(ctx, "persist")
		log.LogError(err, "attaching audio url failed", "message_id", messageID)
		return Result{TurnComplete: true, Transcript: transcript, ReplyText: reply, ErrorCode: ErrorCode(ErrPersistenceFailure)}
	}

	log.Info("spoken reply delivered", "message_id", messageID, "reply_chars", len(reply))
	return Result{
		TurnComplete:  true,
		Transcript:    transcript,
		ReplyText:     reply,
		ReplyAudioURL: url,
	}
}

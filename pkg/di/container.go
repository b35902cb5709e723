package di

import (
	"context"
	"time"

	"talktolisten/backend/internal/service"
	"talktolisten/backend/internal/voice"
	"talktolisten/backend/pkg/config"
	"talktolisten/backend/pkg/jwt"
	"talktolisten/backend/pkg/logger"
	"talktolisten/backend/pkg/resilience"
	"talktolisten/backend/pkg/secrets"
	sharedredis "talktolisten/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	Redis          *sharedredis.RedisClient
	UserService    *service.UserService
	BotService     *service.BotService
	VoiceCatalog   *service.VoiceCatalog
	ChatService    *service.ChatService
	MessageService *service.MessageService
	Orchestrator   *voice.Orchestrator
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig   logger.Config
	JWTSecret      string
	JWTExpiryHours int
	App            *config.Config
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig:   logger.DefaultConfig(),
		JWTSecret:      "",
		JWTExpiryHours: 0, // Use default
		App:            config.New(),
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.App == nil {
		cfg.App = config.New()
	}
	app := cfg.App

	log := logger.New(cfg.LoggerConfig)
	jwtService := jwt.NewService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	redisClient := sharedredis.NewRedisClient()

	userService := service.NewUserService(db)
	botService := service.NewBotService(db)
	voiceCatalog := service.NewVoiceCatalog(db)
	chatService := service.NewChatService(db)
	messageService := service.NewMessageService(db, redisClient)

	orchestrator := newOrchestrator(app, log, botService, messageService)

	return &Container{
		DB:             db,
		Logger:         log,
		JWTService:     jwtService,
		Redis:          redisClient,
		UserService:    userService,
		BotService:     botService,
		VoiceCatalog:   voiceCatalog,
		ChatService:    chatService,
		MessageService: messageService,
		Orchestrator:   orchestrator,
	}, nil
}

// newOrchestrator assembles the voice turn pipeline from configuration.
// Provider credentials prefer the secrets manager and fall back to the
// environment-derived config values.
func newOrchestrator(app *config.Config, log *logger.Logger, bots voice.BotDirectory, messages voice.MessageSink) *voice.Orchestrator {
	ctx := context.Background()

	speechKey := secrets.GetSecretWithDefault(ctx, "AZURE_SPEECH_KEY", app.Speech.AzureKey)
	runpodKey := secrets.GetSecretWithDefault(ctx, "RUNPOD_API_KEY", app.Generation.RunPodAPIKey)
	elevenKey := secrets.GetSecretWithDefault(ctx, "ELEVENLABS_API_KEY", app.Synthesis.ElevenLabsAPIKey)
	sasToken := secrets.GetSecretWithDefault(ctx, "AZURE_STORAGE_SAS_TOKEN", app.BlobStorage.SASToken)

	stt := voice.NewGuardedTranscription(
		voice.NewAzureSpeech(speechKey, app.Speech.AzureRegion),
		resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("azure-speech"), log),
	)
	tts := voice.NewGuardedSynthesis(
		voice.NewElevenLabs(elevenKey),
		resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("elevenlabs"), log),
	)

	return voice.NewOrchestrator(voice.Deps{
		Decoder:    voice.NewFFmpegDecoder(app.Pipeline.ScratchDir),
		Classifier: &voice.EnergyClassifier{Threshold: app.Pipeline.VADThreshold},
		STT:        stt,
		Generation: voice.NewRunPod(app.Generation.RunPodEndpoint, runpodKey),
		Synthesis:  tts,
		Store:      voice.NewAzureBlobStore(app.BlobStorage.AzureAccount, app.BlobStorage.Container, sasToken),
		Bots:       bots,
		Messages:   messages,
		Poll: voice.PollConfig{
			Interval:    app.Generation.PollInterval,
			MaxAttempts: app.Generation.PollMaxAttempts,
		},
		Logger:  log,
		Metrics: voice.NewMetrics(),
	})
}

package router

import (
	"time"

	"talktolisten/backend/internal/api"
	"talktolisten/backend/internal/ws"
	"talktolisten/backend/pkg/config"
	"talktolisten/backend/pkg/di"
	"talktolisten/backend/pkg/errors"
	"talktolisten/backend/pkg/jwt"
	"talktolisten/backend/pkg/logger"
	"talktolisten/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	// Load configuration
	cfg := config.New()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	engine := gin.New()

	// Tag every request with an id before anything logs it
	engine.Use(middleware.RequestIDMiddleware())

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)

	// Apply rate limiting to all routes
	engine.Use(rateLimiter.Middleware())

	// Initialize WebSocket hub backed by the voice pipeline
	hub := ws.NewHub(container.Orchestrator, container.ChatService)

	// Start the hub
	go hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Add CORS middleware
	r.Engine.Use(corsMiddleware())

	// Create JWT auth middleware
	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	// Initialize controllers
	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.JWTService, r.Logger)
	userHandler := api.NewUserHandler(r.Container.UserService)
	botHandler := api.NewBotHandler(r.Container.BotService, r.Container.VoiceCatalog, r.Logger)
	chatHandler := api.NewChatHandler(r.Container.ChatService, r.Container.MessageService, r.Logger)
	voiceTurnHandler := api.NewVoiceTurnHandler(r.Container.Orchestrator, chatHandler, r.Logger)

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	publicRoutes := v1.Group("/")
	{
		// Health check endpoint
		publicRoutes.GET("/health", r.healthCheckHandler())

		// Auth routes
		authRoutes := publicRoutes.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth, authHandler.Me)
		}
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		// User management routes (admin only)
		adminRoutes := protectedRoutes.Group("/admin")
		adminRoutes.Use(middleware.RequireRole(jwt.RoleAdmin))
		{
			adminRoutes.PUT("/users/:id/role", authHandler.UpdateUserRole)
		}

		// Profile routes
		userRoutes := protectedRoutes.Group("/users")
		{
			userRoutes.GET("/me", userHandler.GetProfile)
			userRoutes.PUT("/me", userHandler.UpdateProfile)
		}

		// Bot catalog routes
		botRoutes := protectedRoutes.Group("/bots")
		{
			botRoutes.POST("", middleware.RequirePermission(jwt.PermWriteBot), botHandler.CreateBot)
			botRoutes.GET("", middleware.RequirePermission(jwt.PermReadBot), botHandler.ListBots)
			botRoutes.GET("/me", middleware.RequirePermission(jwt.PermReadBot), botHandler.ListMyBots)
			botRoutes.GET("/explore", middleware.RequirePermission(jwt.PermReadBot), botHandler.ExploreBots)
			botRoutes.GET("/search", middleware.RequirePermission(jwt.PermReadBot), botHandler.SearchBots)
			botRoutes.GET("/:id", middleware.RequirePermission(jwt.PermReadBot), botHandler.GetBot)
			botRoutes.PUT("/:id", middleware.RequirePermission(jwt.PermWriteBot), botHandler.UpdateBot)
			botRoutes.DELETE("/:id", middleware.RequirePermission(jwt.PermDeleteBot), botHandler.DeleteBot)
			botRoutes.POST("/:id/like", middleware.RequirePermission(jwt.PermReadBot), botHandler.LikeBot)
		}

		// Voice catalog routes
		voiceRoutes := protectedRoutes.Group("/voices")
		{
			voiceRoutes.POST("", middleware.RequirePermission(jwt.PermWriteBot), botHandler.CreateVoice)
			voiceRoutes.GET("", middleware.RequirePermission(jwt.PermReadBot), botHandler.ListVoices)
			voiceRoutes.GET("/me", middleware.RequirePermission(jwt.PermReadBot), botHandler.ListMyVoices)
			voiceRoutes.GET("/search", middleware.RequirePermission(jwt.PermReadBot), botHandler.SearchVoices)
			voiceRoutes.GET("/:id", middleware.RequirePermission(jwt.PermReadBot), botHandler.GetVoice)
			voiceRoutes.PUT("/:id", middleware.RequirePermission(jwt.PermWriteBot), botHandler.UpdateVoice)
			voiceRoutes.DELETE("/:id", middleware.RequirePermission(jwt.PermDeleteBot), botHandler.DeleteVoice)
		}

		// Chat and message routes
		chatRoutes := protectedRoutes.Group("/chats")
		{
			chatRoutes.POST("", chatHandler.CreateChat)
			chatRoutes.GET("", chatHandler.ListChats)
			chatRoutes.DELETE("/:chat_id", chatHandler.DeleteChat)
			chatRoutes.GET("/:chat_id/messages", chatHandler.GetChatMessages)
			chatRoutes.POST("/:chat_id/messages", chatHandler.SendMessage)
			chatRoutes.GET("/:chat_id/messages/:message_id", chatHandler.GetMessage)
			chatRoutes.DELETE("/:chat_id/messages/:message_id", chatHandler.DeleteMessage)

			// Voice turn routes
			chatRoutes.POST("/:chat_id/voice", middleware.RequirePermission(jwt.PermUseVoice), voiceTurnHandler.PushChunk)
			chatRoutes.DELETE("/:chat_id/voice", middleware.RequirePermission(jwt.PermUseVoice), voiceTurnHandler.EndConversation)
		}
	}

	// Detailed health endpoints outside the versioned API
	r.setupHealthRoutes()

	// WebSocket route
	r.Engine.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(r.Hub, c)
	})
}

// healthCheckHandler returns a simple health check handler
func (r *Router) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": r.Config.Server.Env,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}

// Enhance CORS middleware to explicitly allow WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

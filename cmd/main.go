package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"miningpad/internal/auth"
	"miningpad/internal/config"
	"miningpad/internal/database"
	"miningpad/internal/handlers"
	"miningpad/internal/services"
	"miningpad/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	signupBonus, err := decimal.NewFromString(cfg.App.SignupBonus)
	if err != nil {
		logger.Fatalf("Invalid SIGNUP_BONUS: %v", err)
	}
	referralReward, err := decimal.NewFromString(cfg.App.ReferralReward)
	if err != nil {
		logger.Fatalf("Invalid REFERRAL_REWARD: %v", err)
	}
	miningRate, err := decimal.NewFromString(cfg.App.MiningRatePerHour)
	if err != nil {
		logger.Fatalf("Invalid MINING_RATE_PER_HOUR: %v", err)
	}
	sessionHours, err := strconv.Atoi(cfg.App.MiningSessionHours)
	if err != nil {
		logger.Fatalf("Invalid MINING_SESSION_HOURS: %v", err)
	}

	// Initialize services
	db := database.GetDB()
	taskService := services.NewTaskService(db)
	achievementService := services.NewAchievementService(db)
	walletService := services.NewWalletService(db, taskService, achievementService)
	referralService := services.NewReferralService(db, walletService, referralReward)
	authService := services.NewAuthService(db, walletService, referralService, signupBonus)
	miningService := services.NewMiningService(db, walletService, miningRate, sessionHours)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(walletService)
	taskHandler := handlers.NewTaskHandler(taskService, walletService)
	achievementHandler := handlers.NewAchievementHandler(achievementService, walletService)
	referralHandler := handlers.NewReferralHandler(referralService)
	miningHandler := handlers.NewMiningHandler(miningService)
	adminHandler := handlers.NewAdminHandler(db, taskService, achievementService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:19006", // Expo dev server
		"http://127.0.0.1:3000",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /api/auth/me route
	authProtected := router.Group("/api/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Wallet endpoints
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/send", walletHandler.Send)
			wallet.POST("/send-by-email", walletHandler.SendByEmail)
			wallet.POST("/exchange", walletHandler.Exchange)
			wallet.GET("/transactions", walletHandler.GetTransactions)
		}

		// Task endpoints
		api.GET("/tasks", taskHandler.ListTasks)
		api.POST("/tasks/:taskId/progress", taskHandler.UpdateProgress)
		api.POST("/tasks/:taskId/claim", taskHandler.ClaimReward)
		api.GET("/tasks/:taskId/history", taskHandler.GetProgressHistory)

		// Achievement endpoints
		api.GET("/achievements", achievementHandler.ListAchievements)
		api.POST("/achievements/:achievementId/progress", achievementHandler.UpdateProgress)
		api.POST("/achievements/:achievementId/claim", achievementHandler.ClaimReward)
		api.GET("/achievements/:achievementId/history", achievementHandler.GetProgressHistory)

		// Referral endpoints
		api.GET("/referrals/info", referralHandler.GetInfo)
		api.POST("/referrals/generate-code", referralHandler.GenerateCode)
		api.GET("/referrals/validate/:code", referralHandler.ValidateCode)

		// Mining endpoints
		api.POST("/mining/start", miningHandler.StartMining)
		api.GET("/mining/status", miningHandler.GetStatus)
		api.POST("/mining/claim", miningHandler.ClaimMining)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(auth.AdminMiddleware())
	{
		admin.POST("/tasks", adminHandler.CreateTask)
		admin.POST("/achievements", adminHandler.CreateAchievement)
		admin.GET("/stats", adminHandler.GetStats)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Infof("Server exited")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendapos/auth-service/internal/config"
	"github.com/tendapos/auth-service/internal/handlers"
	"github.com/tendapos/auth-service/internal/logging"
	"github.com/tendapos/auth-service/internal/middleware"
	"github.com/tendapos/auth-service/internal/observability"
	"github.com/tendapos/auth-service/internal/services"
	"github.com/tendapos/auth-service/internal/sms"
	"github.com/tendapos/auth-service/internal/utils"
	"go.uber.org/zap"
)

// @title           TendaPOS Auth API
// @version         1.0
// @description     Phone/PIN authentication and session bridging for TendaPOS. Issues and verifies SMS one-time codes, manages PIN credentials with brute-force lockout, and bridges verified phone identities into backend sessions.

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name auth
// @tag.description Phone and PIN authentication

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger := logging.Logger

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	observability.InitTracer(cfg, logger)
	defer observability.ShutdownTracer(logger)

	db, err := config.InitMongoDB(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	redis, err := config.InitRedis(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}

	// Country-specific SMS providers behind one gateway
	gateway := sms.NewSelector(map[string]sms.Provider{
		"GH": sms.NewMnotifyProvider("", cfg.MnotifyAPIKey, cfg.MnotifySenderID, cfg.SMSTimeout),
		"NG": sms.NewTermiiProvider("", cfg.TermiiAPIKey, cfg.TermiiSenderID, cfg.SMSTimeout),
	}, cfg.SMSTimeout, logger)

	otpStore := services.NewMongoOTPStore(db.Collection(cfg.PendingCodeCollection))
	identityStore := services.NewMongoIdentityStore(db.Collection(cfg.PhoneIdentityCollection))
	credentialStore := services.NewMongoCredentialStore(db.Collection(cfg.CredentialCollection))

	backend := services.NewHTTPAuthBackend(cfg.AuthBaseURL, cfg.AuthServiceKey, 10*time.Second)
	bridge := services.NewSessionBridge(backend, logger)

	otpService := services.NewOTPService(cfg, otpStore, identityStore, credentialStore, bridge, gateway, redis, logger)
	pinService := services.NewPINService(cfg, identityStore, credentialStore, bridge, logger)

	authHandler := handlers.NewAuthHandler(otpService, pinService, logger)
	healthHandler := handlers.NewHealthHandler(db, redis)

	auditTrail := utils.NewAuditTrail(utils.NewMongoAuditSink(db, cfg.AuditLogCollection), 256, logger)
	defer auditTrail.Close()

	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		// No allow-list configured: browsers get no CORS grant at all.
		corsConfig.AllowOrigins = []string{}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestTiming(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		middleware.Audit(auditTrail),
		cors.New(corsConfig),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.GET("/health", healthHandler.Health)

		auth := v1.Group("/auth")
		{
			auth.POST("/otp/request", authHandler.RequestOTP)
			auth.POST("/otp/verify", authHandler.VerifyOTP)
			auth.POST("/pin", middleware.RequireSession(cfg.AuthJWTSecret), authHandler.SetPIN)
			auth.POST("/pin/verify", authHandler.VerifyPIN)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.Int("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

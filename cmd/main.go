package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/kitlocker/kitlocker-server/config"
	"github.com/kitlocker/kitlocker-server/db"
	"github.com/kitlocker/kitlocker-server/handlers"
	"github.com/kitlocker/kitlocker-server/middleware"
	"github.com/kitlocker/kitlocker-server/realtime"
	"github.com/kitlocker/kitlocker-server/repositories"
	api "github.com/kitlocker/kitlocker-server/routes"
	"github.com/kitlocker/kitlocker-server/services"
	"github.com/kitlocker/kitlocker-server/storage"
)

// How often stale invites get swept.
const inviteSweepInterval = time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	hub := realtime.NewHub(logger)
	go hub.Run()
	logger.Info("websocket hub started")

	var mailer services.Mailer
	if cfg.SMTPConfigured() {
		mailer = services.NewSMTPMailer(cfg)
		logger.Info("SMTP mailer initialized", slog.String("host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP not configured, invite emails disabled")
	}

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	membershipRepo := repositories.NewPostgresMembershipRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	subteamRepo := repositories.NewPostgresSubteamRepository(dbConn)
	designRepo := repositories.NewPostgresDesignRequestRepository(dbConn)
	reactionRepo := repositories.NewPostgresReactionRepository(dbConn)
	productRepo := repositories.NewPostgresProductRepository(dbConn)
	orderRepo := repositories.NewPostgresOrderRepository(dbConn)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, membershipRepo, userRepo, uploader)
	rosterService := services.NewRosterService(membershipRepo, submissionRepo, inviteRepo, userRepo, teamRepo)
	inviteService := services.NewInviteService(inviteRepo, teamRepo, membershipRepo, submissionRepo, userRepo, mailer, cfg.PublicURL, logger)
	designService := services.NewDesignService(dbConn, designRepo, orderRepo, reactionRepo, membershipRepo, teamRepo, uploader, hub, logger)
	institutionService := services.NewInstitutionService(teamRepo, subteamRepo, membershipRepo, submissionRepo, orderRepo, designRepo)
	orderService := services.NewOrderService(dbConn, orderRepo, productRepo, membershipRepo)
	productService := services.NewProductService(productRepo, uploader)
	dashboardService := services.NewDashboardService(teamRepo, membershipRepo, designRepo, orderRepo)
	logger.Info("services initialized")

	// Sweep stale invites on a fixed schedule so expired tokens stop
	// showing up in pending lists.
	go func() {
		ticker := time.NewTicker(inviteSweepInterval)
		defer ticker.Stop()

		for {
			expired, err := inviteService.ExpireStaleInvites(context.Background())
			if err != nil {
				logger.Error("invite sweep failed", slog.Any("error", err))
			} else if expired > 0 {
				logger.Info("expired stale invites", slog.Int64("count", expired))
			}
			<-ticker.C
		}
	}()

	authenticator := middleware.NewAuthenticator(cfg.JWTSecretKey)
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	teamHandler := handlers.NewTeamHandler(teamService)
	rosterHandler := handlers.NewRosterHandler(rosterService)
	inviteHandler := handlers.NewInviteHandler(inviteService)
	designHandler := handlers.NewDesignRequestHandler(designService)
	institutionHandler := handlers.NewInstitutionHandler(institutionService)
	orderHandler := handlers.NewOrderHandler(orderService)
	productHandler := handlers.NewProductHandler(productService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authenticator,
		authHandler,
		teamHandler,
		rosterHandler,
		inviteHandler,
		designHandler,
		institutionHandler,
		orderHandler,
		productHandler,
		dashboardHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

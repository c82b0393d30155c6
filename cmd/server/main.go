package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/asktopedia/backend/internal/config"
	"github.com/asktopedia/backend/internal/handlers"
	appMiddleware "github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/services"
	"github.com/asktopedia/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]handlers.Pinger{}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	if p, ok := store.(handlers.Pinger); ok {
		health["mongo"] = p
	}

	cache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cache.Close()
	if p, ok := cache.(handlers.Pinger); ok {
		health["redis"] = p
	}

	var gcsOpts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		gcsOpts = append(gcsOpts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	}

	// Outbound email and bot protection are optional.
	var (
		mailer        services.Mailer
		supportMailer services.SupportMailer
		captcha       services.CaptchaVerifier
	)
	if cfg.SendGridAPIKey != "" {
		sg := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromEmail, cfg.SupportEmail)
		mailer = sg
		if cfg.SupportEmail != "" {
			supportMailer = sg
		}
	} else {
		logger.Warn("SENDGRID_API_KEY not set; activity emails and support requests are disabled")
	}
	if cfg.RecaptchaSecret != "" {
		captcha = services.NewRecaptchaVerifier(cfg.RecaptchaSecret)
	}

	var idTokens appMiddleware.IDTokenVerifier
	if cfg.FirebaseProjectID != "" {
		client, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			logger.Warn("firebase auth disabled", zap.Error(err))
		} else {
			idTokens = client
		}
	}

	reputation := services.NewReputationService(store, logger)
	notifier := services.NewNotifier(store, mailer, logger)
	moderation := services.NewModerationActions(store, notifier, cache, cfg.ModerationBanStrikes, logger)

	var (
		images services.ImageStore
		photos services.PhotoModerator
	)
	switch cfg.ImageBackend {
	case config.ImageBackendGCS:
		client, err := gcs.NewClient(ctx, gcsOpts...)
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}
		defer client.Close()
		detector, err := services.NewVisionSafeSearch(ctx, gcsOpts...)
		if err != nil {
			return err
		}
		images = services.NewGCSImageStore(client, cfg.GCSBucket)
		photos = services.NewImageModerator(services.NewGCSBucket(client, cfg.GCSBucket), detector, moderation, logger)
	case config.ImageBackendCloudinary:
		cld, err := services.NewCloudinaryImageStore(cfg.CloudinaryURL, "asktopedia", logger)
		if err != nil {
			return err
		}
		images = cld
	default:
		local, err := services.NewLocalImageStore(cfg.UploadDir)
		if err != nil {
			return err
		}
		images = local
	}

	userService := services.NewUserService(store, reputation, logger, services.UserServiceOptions{
		Captcha:        captcha,
		Photos:         photos,
		Cache:          cache,
		LeaderboardTTL: cfg.LeaderboardTTL,
	})
	badgeService := services.NewBadgeService(store, logger)
	questionService := services.NewQuestionService(store, reputation, logger)
	answerService := services.NewAnswerService(store, reputation, logger)
	accountService := services.NewAccountService(store, questionService, answerService, cache, logger)
	reportService := services.NewReportService(store, questionService, answerService, notifier, moderation, logger)
	adminService := services.NewAdminService(store, accountService, questionService, answerService, notifier, moderation, logger)
	meetupService := services.NewMeetupService(store)
	supportService := services.NewSupportService(captcha, supportMailer, logger)

	if cfg.BadgeSeedFile != "" {
		if _, err := badgeService.SeedFromFile(ctx, cfg.BadgeSeedFile); err != nil {
			return fmt.Errorf("seed badges: %w", err)
		}
	}

	tokens := appMiddleware.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiration)
	authn := appMiddleware.NewAuthenticator(tokens, idTokens, store, logger)

	healthHandler := handlers.NewHealthHandler(health, logger)
	authHandler := handlers.NewAuthHandler(userService, tokens, logger)
	userHandler := handlers.NewUserHandler(userService, notifier, logger)
	accountHandler := handlers.NewAccountHandler(accountService, logger)
	badgeHandler := handlers.NewBadgeHandler(badgeService, logger)
	questionHandler := handlers.NewQuestionHandler(questionService, logger)
	answerHandler := handlers.NewAnswerHandler(answerService, logger)
	reportHandler := handlers.NewReportHandler(reportService, logger)
	adminHandler := handlers.NewAdminHandler(adminService, logger)
	meetupHandler := handlers.NewMeetupHandler(meetupService, logger)
	imageHandler := handlers.NewImageHandler(images, cfg.MaxUploadSizeMB, logger)
	supportHandler := handlers.NewSupportHandler(supportService, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/questions", questionHandler.List)
		r.Get("/questions/{id}", questionHandler.Get)
		r.Get("/answers/question/{questionId}", answerHandler.ListByQuestion)
		r.Get("/badges", badgeHandler.List)
		r.Get("/badges/user/{userId}", badgeHandler.ForUser)
		r.Get("/users/leaderboard", userHandler.Leaderboard)
		r.Get("/meetups", meetupHandler.List)
		r.Get("/meetups/search", meetupHandler.Search)
		r.Get("/meetups/bounds", meetupHandler.Bounds)
		r.Get("/meetups/{id}", meetupHandler.Get)
		r.With(authn.Optional).Post("/support", supportHandler.Submit)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)

			r.Post("/questions", questionHandler.Create)
			r.Get("/questions/my-questions", questionHandler.Mine)
			r.Delete("/questions/my-questions/{id}", questionHandler.Delete)
			r.Put("/questions/{id}/upvote", questionHandler.Upvote)
			r.Put("/questions/{id}/downvote", questionHandler.Downvote)
			r.Put("/questions/{id}/bookmark", questionHandler.ToggleBookmark)

			r.Post("/answers", answerHandler.Create)
			r.Put("/answers/{id}/upvote", answerHandler.Upvote)
			r.Put("/answers/{id}/downvote", answerHandler.Downvote)
			r.Put("/answers/{id}/accept", answerHandler.Accept)
			r.Delete("/answers/my-answers/{id}", answerHandler.Delete)

			r.Get("/users/profile", userHandler.Profile)
			r.Get("/users/stats", userHandler.Stats)
			r.Get("/users/bookmarks", userHandler.Bookmarks)
			r.Get("/users/activities", userHandler.Activities)
			r.Put("/users/activities/{id}/read", userHandler.MarkActivityRead)
			r.Delete("/users/me", accountHandler.DeleteAccount)
			r.Put("/users/{id}", userHandler.Update)

			r.Post("/reports", reportHandler.Create)

			r.Post("/meetups", meetupHandler.Create)
			r.Get("/meetups/mine", meetupHandler.Mine)
			r.Put("/meetups/{id}", meetupHandler.Update)
			r.Delete("/meetups/{id}", meetupHandler.Delete)
			r.Post("/meetups/{id}/attend", meetupHandler.Attend)
			r.Delete("/meetups/{id}/attend", meetupHandler.Unattend)

			r.Post("/upload", imageHandler.Upload)
			r.Delete("/upload/{imageId}", imageHandler.Delete)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireAdmin)

				r.Post("/badges/add", badgeHandler.Create)
				r.Get("/reports", reportHandler.List)
				r.Put("/reports/{id}", reportHandler.UpdateStatus)

				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", adminHandler.Stats)
					r.Get("/users", adminHandler.ListUsers)
					r.Put("/users/{id}/ban", adminHandler.Ban)
					r.Put("/users/{id}/unban", adminHandler.Unban)
					r.Delete("/users/{id}", adminHandler.DeleteUser)
					r.Post("/notices", adminHandler.SendNotice)
					r.Get("/reports", reportHandler.List)
					r.Put("/reports/{id}/resolve", reportHandler.Resolve)
					r.Delete("/reports/{id}", reportHandler.Delete)
					r.Delete("/questions/{id}", adminHandler.DeleteQuestion)
					r.Delete("/answers/{id}", adminHandler.DeleteAnswer)
				})
			})
		})
	})

	if cfg.ImageBackend == config.ImageBackendLocal {
		dir, err := filepath.Abs(cfg.UploadDir)
		if err != nil {
			return fmt.Errorf("resolve upload dir: %w", err)
		}
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir))))
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Asktopedia API server starting",
			zap.String("addr", cfg.ServerAddress),
			zap.String("store", cfg.Store),
			zap.String("images", cfg.ImageBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return storage.NewMemoryStore(), nil
	}
	return storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, logger)
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.Cache, error) {
	if cfg.RedisURL == "" {
		return services.NewMemoryCache(), nil
	}
	return services.NewRedisCache(ctx, cfg.RedisURL, logger)
}

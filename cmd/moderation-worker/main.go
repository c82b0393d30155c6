package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/asktopedia/backend/internal/config"
	appMiddleware "github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/services"
	"github.com/asktopedia/backend/internal/storage"
)

// maxEventBytes bounds a single notification body.
const maxEventBytes = 1 << 20

func main() {
	cfg := config.Load()
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("moderation worker exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if cfg.GCSBucket == "" {
		return errors.New("GCS_BUCKET is required")
	}
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if cfg.FirebaseCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	}

	store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("storage client: %w", err)
	}
	defer client.Close()

	detector, err := services.NewVisionSafeSearch(ctx, opts...)
	if err != nil {
		return err
	}

	var mailer services.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromEmail, cfg.SupportEmail)
	}
	notifier := services.NewNotifier(store, mailer, logger)
	actions := services.NewModerationActions(store, notifier, nil, cfg.ModerationBanStrikes, logger)
	bucket := services.NewGCSBucket(client, cfg.GCSBucket)
	moderator := services.NewImageModerator(bucket, detector, actions, logger)
	processor := services.NewUploadProcessor(bucket, moderator, store, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/events", finalizeHandler(processor, logger))

	// Cloud Run injects PORT.
	addr := cfg.ServerAddress
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("moderation worker listening", zap.String("addr", addr), zap.String("bucket", cfg.GCSBucket))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// finalizeHandler answers 200 for handled or skipped events and 500 when the
// event should be redelivered.
func finalizeHandler(processor *services.UploadProcessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			zap.String("ce_type", r.Header.Get("Ce-Type")),
			zap.String("ce_subject", r.Header.Get("Ce-Subject")),
		)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
		if err != nil {
			log.Warn("failed to read event body", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		ev, err := parseFinalizeEvent(body)
		if err != nil {
			log.Warn("failed to decode event", zap.Error(err), zap.Int("bytes", len(body)))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if ev.Bucket == "" || ev.Name == "" {
			log.Info("skipping event without bucket or name")
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		outcome, err := processor.Process(ctx, ev.Bucket, ev.Name, ev.Metadata)
		if err != nil {
			log.Error("moderation failed", zap.String("object", ev.Name), zap.Error(err))
			http.Error(w, "moderation failed", http.StatusInternalServerError)
			return
		}
		log.Info("event processed", zap.String("object", ev.Name), zap.String("outcome", string(outcome)))
		w.WriteHeader(http.StatusOK)
	}
}

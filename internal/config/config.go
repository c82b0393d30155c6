package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ImageBackendLocal      = "local"
	ImageBackendCloudinary = "cloudinary"
	ImageBackendGCS        = "gcs"
)

type Config struct {
	ServerAddress string
	Environment   string
	LogLevel      string

	JWTSecret     string
	JWTExpiration time.Duration

	Store    string
	MongoURI string
	MongoDB  string

	RedisURL       string
	LeaderboardTTL time.Duration

	ImageBackend    string
	UploadDir       string
	MaxUploadSizeMB int64
	GCSBucket       string
	CloudinaryURL   string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string

	SendGridAPIKey string
	MailFromEmail  string
	SupportEmail   string

	RecaptchaSecret string

	BadgeSeedFile        string
	ModerationBanStrikes int

	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory or the repo root is loaded first when present; real environment
// variables win over it.
func Load() *Config {
	for _, location := range []string{".env", "../../.env"} {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("APP_ENV", "production"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiration: getDuration("JWT_EXPIRATION", 24*time.Hour),

		Store:    strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "asktopedia"),

		RedisURL:       getEnv("REDIS_URL", ""),
		LeaderboardTTL: getDuration("LEADERBOARD_TTL", time.Minute),

		ImageBackend:    strings.ToLower(getEnv("IMAGE_BACKEND", ImageBackendLocal)),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB: int64(getInt("MAX_UPLOAD_MB", 10)),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		CloudinaryURL:   getEnv("CLOUDINARY_URL", ""),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFromEmail:  getEnv("MAIL_FROM_EMAIL", "no-reply@asktopedia.app"),
		SupportEmail:   getEnv("SUPPORT_EMAIL", ""),

		RecaptchaSecret: getEnv("RECAPTCHA_SECRET", ""),

		BadgeSeedFile:        getEnv("BADGE_SEED_FILE", ""),
		ModerationBanStrikes: getInt("MODERATION_BAN_STRIKES", 3),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.JWTSecret == defaultJWTSecret && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET must be changed outside development"))
	}

	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE=mongo"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE %q", c.Store))
	}

	switch c.ImageBackend {
	case ImageBackendLocal:
	case ImageBackendCloudinary:
		if c.CloudinaryURL == "" {
			errs = append(errs, errors.New("CLOUDINARY_URL is required when IMAGE_BACKEND=cloudinary"))
		}
	case ImageBackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when IMAGE_BACKEND=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_BACKEND %q", c.ImageBackend))
	}

	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if c.ModerationBanStrikes <= 0 {
		errs = append(errs, errors.New("MODERATION_BAN_STRIKES must be positive"))
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger: console output in development, JSON
// otherwise.
func NewLogger(c *Config) (*zap.Logger, error) {
	var zc zap.Config
	if c.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getDuration accepts Go durations ("90m") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"papershare-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string
	LogLevel        string

	StoreBackend  string
	DataDir       string
	RedisURL      string
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	SeedOnStart   bool

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	MaxUploadBytes  int64

	JWTSecret          string
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

const devJWTSecret = "dev-secret"

// Load reads configuration from .env files, an optional YAML file named by
// CONFIG_FILE, and environment variables. Environment variables win.
func Load() (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	fc, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	env := normalizeEnv(pick("ENV", fc.Server.Env, "dev"))
	cfg := Config{
		Port:            pick("PORT", fc.Server.Port, "8080"),
		CORSAllowOrigin: splitAndTrim(pick("CORS_ALLOW_ORIGINS", strings.Join(fc.Server.CORSAllowOrigins, ","), "http://localhost:5173")),
		Env:             env,
		LogLevel:        pick("LOG_LEVEL", fc.Server.LogLevel, "info"),

		StoreBackend:  normalizeBackend(pick("STORE_BACKEND", fc.Store.Backend, "file")),
		DataDir:       pick("DATA_DIR", fc.Store.DataDir, "./data/records"),
		RedisURL:      pick("REDIS_URL", fc.Store.RedisURL, "redis://localhost:6379/0"),
		RedisPrefix:   pick("REDIS_PREFIX", fc.Store.RedisPrefix, "papershare:"),
		MongoURI:      pick("MONGO_URI", fc.Store.MongoURI, "mongodb://localhost:27017"),
		MongoDatabase: pick("MONGO_DATABASE", fc.Store.MongoDatabase, "papershare"),
		DatabaseURL:   pick("DATABASE_URL", fc.Store.DatabaseURL, ""),
		SeedOnStart:   parseBool(pick("SEED_ON_START", fc.Store.SeedOnStart, "true"), true),

		ObjectStoreType: normalizeStoreType(pick("OBJECT_STORE", fc.Objects.Type, "local")),
		LocalStoreDir:   pick("LOCAL_STORE_DIR", fc.Objects.LocalDir, "./data/uploads"),
		AWSRegion:       pick("AWS_REGION", fc.Objects.AWSRegion, ""),
		S3Bucket:        pick("S3_BUCKET", fc.Objects.S3Bucket, ""),
		S3Prefix:        pick("S3_PREFIX", fc.Objects.S3Prefix, ""),
		SSEKMSKeyID:     pick("SSE_KMS_KEY_ID", "", ""),
		MinioEndpoint:   pick("MINIO_ENDPOINT", fc.Objects.MinioEndpoint, "localhost:9000"),
		MinioAccessKey:  pick("MINIO_ACCESS_KEY", fc.Objects.MinioAccessKey, ""),
		MinioSecretKey:  pick("MINIO_SECRET_KEY", "", ""),
		MinioBucket:     pick("MINIO_BUCKET", fc.Objects.MinioBucket, "papershare"),
		MinioUseSSL:     parseBool(pick("MINIO_USE_SSL", fc.Objects.MinioUseSSL, "false"), false),
		MaxUploadBytes:  parseInt64(pick("MAX_UPLOAD_BYTES", fc.Objects.MaxUploadBytes, ""), 10<<20),

		JWTSecret:          pick("JWT_SECRET", "", ""),
		SessionTTL:         parseDuration(pick("SESSION_TTL", fc.Auth.SessionTTL, ""), 7*24*time.Hour),
		GoogleClientID:     pick("GOOGLE_CLIENT_ID", fc.Auth.GoogleClientID, ""),
		GoogleClientSecret: pick("GOOGLE_CLIENT_SECRET", "", ""),
		GoogleRedirectURL:  pick("GOOGLE_REDIRECT_URL", fc.Auth.GoogleRedirectURL, ""),
		UIRedirectURL:      pick("UI_REDIRECT_URL", fc.Auth.UIRedirectURL, ""),
	}

	if cfg.JWTSecret == "" {
		if env == "production" {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = devJWTSecret
	}
	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		if env == "production" {
			return Config{}, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		telemetry.Warn("config.database_url_missing", map[string]any{"fallback": "file"})
		cfg.StoreBackend = "file"
	}

	return cfg, nil
}

// pick returns the env value for key, then the file value, then def.
func pick(key, fileVal, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if strings.TrimSpace(fileVal) != "" {
		return strings.TrimSpace(fileVal)
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory", "mem":
		return "memory"
	case "redis":
		return "redis"
	case "mongo", "mongodb":
		return "mongo"
	case "postgres", "pg", "postgresql":
		return "postgres"
	default:
		return "file"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func parseBool(raw string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func parseInt64(raw string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseDuration(raw string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// IsDevLike reports whether env tolerates local fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ストアの種類
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// LLM
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	// Catalog
	CatalogBaseURL string
	CatalogTimeout time.Duration
	CatalogMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitInsight int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string

	// Tracing
	TraceExporter string

	// Location は賞味期限判定に使う「今日」のタイムゾーン。
	Location *time.Location
}

// source は設定値の取得元。環境変数が設定ファイルより優先される。
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

// Load は .env ファイル、CONFIG_FILE で指定されたYAMLファイル、環境変数の順に
// 設定を重ね合わせてConfigを読み込む。
// 必須項目が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvOrDefault("DOTENV_PATH", ".env")); err != nil {
		return nil, err
	}

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.StoreDriver = src.getString("STORE_DRIVER", StoreDriverPostgres)
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.DatabaseURL = src.get("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreDriverMongo:
		cfg.MongoURI = src.get("MONGO_URI")
		if cfg.MongoURI == "" {
			missing = append(missing, "MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}

	cfg.JWTSecret = src.get("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.LLMAPIKey = src.get("LLM_API_KEY")
	if cfg.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = src.getString("MONGO_DATABASE", "food-wallet")
	cfg.TokenTTL = src.getDuration("TOKEN_TTL", 24*time.Hour)
	cfg.LLMBaseURL = src.getString("LLM_BASE_URL", "https://api.openai.com/v1")
	cfg.LLMModel = src.getString("LLM_MODEL", "gpt-4o-mini")
	cfg.LLMTimeout = src.getDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.CatalogBaseURL = src.getString("CATALOG_BASE_URL", "https://world.openfoodfacts.org")
	cfg.CatalogTimeout = src.getDuration("CATALOG_TIMEOUT", 10*time.Second)
	cfg.CatalogMaxSize = src.getInt64("CATALOG_MAX_SIZE", 1048576)
	cfg.RateLimitGeneral = src.getInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitInsight = src.getInt("RATE_LIMIT_INSIGHT", 10)
	cfg.ServerPort = src.getString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = src.getString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = src.getString("LOG_LEVEL", "info")
	cfg.TraceExporter = src.getString("TRACE_EXPORTER", "none")

	loc, err := time.LoadLocation(src.getString("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	return cfg, nil
}

// loadDotEnv は .env ファイルを読み込む。ファイルがない場合は何もしない。
// 既に設定済みの環境変数は上書きしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// readConfigFile はキーと値のフラットなYAMLファイルを読み込む。
func readConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func (s source) getString(key, defaultVal string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return defaultVal
}

func (s source) getInt(key string, defaultVal int) int {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s source) getInt64(key string, defaultVal int64) int64 {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func (s source) getDuration(key string, defaultVal time.Duration) time.Duration {
	v := s.get(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Shortener ShortenerConfig
	Security  SecurityConfig
	Session   SessionConfig
	GitHub    GitHubConfig
	Kafka     KafkaConfig
	OTel      OTelConfig
	Log       LogConfig
}

type AppConfig struct {
	Name    string
	Version string
	Env     string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type StorageConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ShortenerConfig struct {
	CodeLength        int
	MaxCreateAttempts int
	RedirectStatus    int
}

type SecurityConfig struct {
	CreateRatePerMinute int
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieSecure bool
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	ClickTopic string
}

type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:    GetEnv("APP_NAME", "encurtador-live"),
			Version: GetEnv("APP_VERSION", "0.1.0"),
			Env:     GetEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:            GetEnv("APP_PORT", "8080"),
			Host:            GetEnv("APP_HOST", "localhost"),
			ReadTimeout:     GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    GetEnvDuration("HTTP_WRITE_TIMEOUT", 0),
			ShutdownTimeout: GetEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     SplitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Storage: StorageConfig{
			Backend: GetEnv("STORAGE_BACKEND", BackendMemory),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: GetEnv("MONGODB_DATABASE", "encurtador"),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		Shortener: ShortenerConfig{
			CodeLength:        GetEnvInt("CODE_LENGTH", 12),
			MaxCreateAttempts: GetEnvInt("SHORTENER_MAX_CREATE_ATTEMPTS", 5),
			RedirectStatus:    GetEnvInt("REDIRECT_STATUS", http.StatusSeeOther),
		},
		Security: SecurityConfig{
			CreateRatePerMinute: GetEnvInt("CREATE_RATE_PER_MINUTE", 30),
		},
		Session: SessionConfig{
			Secret:       GetEnv("SESSION_SECRET", ""),
			TTL:          GetEnvDuration("SESSION_TTL", 7*24*time.Hour),
			CookieSecure: GetEnvBool("SESSION_COOKIE_SECURE", false),
		},
		GitHub: GitHubConfig{
			ClientID:     GetEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: GetEnv("GITHUB_CLIENT_SECRET", ""),
			RedirectURI:  GetEnv("GITHUB_REDIRECT_URI", "http://localhost:8080/oauth/callback"),
			APIBaseURL:   GetEnv("GITHUB_API_URL", "https://api.github.com"),
		},
		Kafka: KafkaConfig{
			Enabled:    GetEnvBool("KAFKA_ENABLED", false),
			Brokers:    SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			ClickTopic: GetEnv("KAFKA_CLICK_TOPIC", "clicks.recorded"),
		},
		OTel: OTelConfig{
			Enabled:     GetEnvBool("OTEL_ENABLED", false),
			Endpoint:    GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRatio: GetEnvFloat("OTEL_SAMPLE_RATIO", 1),
		},
		Log: LogConfig{
			Level:      GetEnv("LOG_LEVEL", "info"),
			File:       GetEnv("LOG_FILE", ""),
			MaxSizeMB:  GetEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: GetEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: GetEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be one of memory, redis, mongo (got %q)", c.Storage.Backend))
	}

	switch c.Shortener.RedirectStatus {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		errs = append(errs, fmt.Errorf("REDIRECT_STATUS must be a 3xx redirect code (got %d)", c.Shortener.RedirectStatus))
	}
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 32 {
		errs = append(errs, fmt.Errorf("CODE_LENGTH must be between 4 and 32 (got %d)", c.Shortener.CodeLength))
	}
	if c.Shortener.MaxCreateAttempts < 1 {
		errs = append(errs, fmt.Errorf("SHORTENER_MAX_CREATE_ATTEMPTS must be positive (got %d)", c.Shortener.MaxCreateAttempts))
	}
	if c.Security.CreateRatePerMinute < 1 {
		errs = append(errs, fmt.Errorf("CREATE_RATE_PER_MINUTE must be positive (got %d)", c.Security.CreateRatePerMinute))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}

	return errors.Join(errs...)
}

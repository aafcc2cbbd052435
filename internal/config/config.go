package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the daemon.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Host        HostConfig
	Cache       CacheConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Refresh     RefreshConfig
	View        ViewConfig
	Notify      NotifyConfig
	Startup     StartupConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

// HostConfig describes the school application whose private API is synchronized.
type HostConfig struct {
	BaseURL         string
	SessionToken    string
	StudentID       int64
	RequestTimeout  time.Duration
	MaxConnsPerHost int
	TimeZone        string
}

// Location resolves TimeZone, falling back to the process zone.
func (h HostConfig) Location() *time.Location {
	if h.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(h.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

type CacheConfig struct {
	Backend string
	Path    string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Prefix   string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type RefreshConfig struct {
	Interval          time.Duration
	Timeout           time.Duration
	EnrichConcurrency int
	MonitorInterval   time.Duration
}

type ViewConfig struct {
	WeekStart    time.Weekday
	ShowWeekends bool
	EventBuffer  int
}

type NotifyConfig struct {
	SuppressWindow time.Duration
}

type StartupConfig struct {
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level      string
	Encoding   string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the daemon can boot against a local cache alone.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "hunter-sync"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "127.0.0.1"),
			Port:         getString("SERVER_PORT", "8087"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Host: HostConfig{
			BaseURL:         strings.TrimRight(getString("HOST_BASE_URL", ""), "/"),
			SessionToken:    os.Getenv("HOST_SESSION_TOKEN"),
			StudentID:       int64(getInt("HOST_STUDENT_ID", 0)),
			RequestTimeout:  getDuration("HOST_REQUEST_TIMEOUT", 15*time.Second),
			MaxConnsPerHost: getInt("HOST_MAX_CONNS", 8),
			TimeZone:        getString("HOST_TIMEZONE", ""),
		},
		Cache: CacheConfig{
			Backend: getString("CACHE_BACKEND", "bolt"),
			Path:    getString("BOLTDB_PATH", "./data/hunter.db"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getString("REDIS_PREFIX", "hunter:"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "hunter-sync"),
		},
		Refresh: RefreshConfig{
			Interval:          getDuration("REFRESH_INTERVAL", 5*time.Minute),
			Timeout:           getDuration("REFRESH_TIMEOUT", time.Minute),
			EnrichConcurrency: getInt("ENRICH_CONCURRENCY", 4),
			MonitorInterval:   getDuration("MONITOR_INTERVAL", 30*time.Second),
		},
		View: ViewConfig{
			WeekStart:    getWeekday("VIEW_WEEK_START", time.Sunday),
			ShowWeekends: getBool("VIEW_SHOW_WEEKENDS", false),
			EventBuffer:  getInt("VIEW_EVENT_BUFFER", 1024),
		},
		Notify: NotifyConfig{
			SuppressWindow: getDuration("NOTIFY_SUPPRESS_WINDOW", time.Second),
		},
		Startup: StartupConfig{
			WaitTimeout:  getDuration("STARTUP_WAIT_TIMEOUT", 10*time.Second),
			PollInterval: getDuration("STARTUP_POLL_INTERVAL", 16*time.Millisecond),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:      getString("LOG_LEVEL", "info"),
			Encoding:   getString("LOG_ENCODING", "json"),
			File:       getString("LOG_FILE", ""),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 20),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 3),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "bolt", "redis":
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Host.BaseURL != "" && !strings.HasPrefix(c.Host.BaseURL, "http") {
		return fmt.Errorf("config: HOST_BASE_URL must be an http(s) URL, got %q", c.Host.BaseURL)
	}
	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("config: REFRESH_INTERVAL must be at least 1s")
	}
	return nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getWeekday(key string, fallback time.Weekday) time.Weekday {
	val := strings.ToLower(os.Getenv(key))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if val == strings.ToLower(d.String()) {
			return d
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

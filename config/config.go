package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MQTT       MQTTConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Log        LogConfig
	Storage    StorageConfig
	Simulator  SimulatorConfig
	Congestion CongestionConfig
}

type ServerConfig struct {
	Port        int
	MetricsAddr string
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// GetDSN returns DB_DSN when set, otherwise a key/value connection string
// accepted by both pgx and the gorm postgres driver.
func (d DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MQTTConfig struct {
	URL   string
	Topic string
}

type AuthConfig struct {
	APIKey string
}

type CORSConfig struct {
	AllowedOrigins string
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Driver string
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type SimulatorConfig struct {
	Enabled      bool
	Interval     time.Duration
	StartupDelay time.Duration
	TimeZone     string
	Location     *time.Location
	SitesFile    string
	Seed         uint64
	Workers      int
	UptimeEpoch  time.Time
}

type CongestionConfig struct {
	Interval time.Duration
	Window   time.Duration
}

// DefaultUptimeEpochMS is the reference instant generated uptimes count from.
const DefaultUptimeEpochMS = 1734789355000

func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisEnabled, err := getBoolEnv("REDIS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}

	sim, err := loadSimulatorConfig()
	if err != nil {
		return nil, err
	}

	congestionSec, err := getIntEnv("CONGESTION_INTERVAL_SEC", 60)
	if err != nil || congestionSec <= 0 {
		return nil, fmt.Errorf("invalid CONGESTION_INTERVAL_SEC: must be a positive integer")
	}
	windowMin, err := getIntEnv("CONGESTION_WINDOW_MIN", 60)
	if err != nil || windowMin <= 0 {
		return nil, fmt.Errorf("invalid CONGESTION_WINDOW_MIN: must be a positive integer")
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres))
	if driver != StoragePostgres && driver != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", driver, StoragePostgres, StorageMemory)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Database: DatabaseConfig{
			DSN:      os.Getenv("DB_DSN"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "swanflow"),
			Password: getEnv("DB_PASSWORD", "swanflow_dev_password"),
			Name:     getEnv("DB_NAME", "swanflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		MQTT: MQTTConfig{
			URL:   getEnv("MQTT_URL", "tcp://localhost:1883"),
			Topic: getEnv("MQTT_TOPIC", "swanflow/detections/+"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", "dev_key_change_in_production"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Driver: driver,
		},
		Simulator: *sim,
		Congestion: CongestionConfig{
			Interval: time.Duration(congestionSec) * time.Second,
			Window:   time.Duration(windowMin) * time.Minute,
		},
	}

	return cfg, nil
}

func loadSimulatorConfig() (*SimulatorConfig, error) {
	enabled, err := getBoolEnv("SIMULATE_LIVE", true)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATE_LIVE: %w", err)
	}
	intervalSec, err := getIntEnv("SIMULATOR_INTERVAL_SEC", 30)
	if err != nil || intervalSec <= 0 {
		return nil, fmt.Errorf("invalid SIMULATOR_INTERVAL_SEC: must be a positive integer")
	}
	delaySec, err := getIntEnv("SIMULATOR_STARTUP_DELAY_SEC", 5)
	if err != nil || delaySec < 0 {
		return nil, fmt.Errorf("invalid SIMULATOR_STARTUP_DELAY_SEC: must be a non-negative integer")
	}
	workers, err := getIntEnv("SIMULATOR_WORKERS", 4)
	if err != nil || workers <= 0 {
		return nil, fmt.Errorf("invalid SIMULATOR_WORKERS: must be a positive integer")
	}
	seed, err := getInt64Env("SIMULATOR_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_SEED: %w", err)
	}
	epochMS, err := getInt64Env("SIMULATOR_UPTIME_EPOCH_MS", DefaultUptimeEpochMS)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_UPTIME_EPOCH_MS: %w", err)
	}

	tz := getEnv("SIMULATOR_TIMEZONE", "Australia/Perth")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_TIMEZONE %q: %w", tz, err)
	}

	return &SimulatorConfig{
		Enabled:      enabled,
		Interval:     time.Duration(intervalSec) * time.Second,
		StartupDelay: time.Duration(delaySec) * time.Second,
		TimeZone:     tz,
		Location:     loc,
		SitesFile:    os.Getenv("SIMULATOR_SITES_FILE"),
		Seed:         uint64(seed),
		Workers:      workers,
		UptimeEpoch:  time.UnixMilli(epochMS).UTC(),
	}, nil
}

// loadDotEnv applies path to the environment when it exists. Variables
// already set take precedence.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getInt64Env(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseInt(value, 10, 64)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

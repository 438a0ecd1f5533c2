package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config — полная конфигурация сервиса
type Config struct {
	Database  DBConfig
	RabbitMQ  MQConfig
	WebSocket WSConfig
	Services  ServicesConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

type MQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type WSConfig struct {
	Port int `yaml:"port"`
	// пустой AllowedOrigins: принимается любой Origin
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type ServicesConfig struct {
	TripServicePort int `yaml:"trip_service"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
}

// RateLimitConfig — лимит записей на пользователя за окно
type RateLimitConfig struct {
	WritesPerWindow int           `yaml:"writes_per_window"`
	Window          time.Duration `yaml:"window"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// serviceFile — service.yaml: порты, лимиты и логирование в одном файле
type serviceFile struct {
	Services  ServicesConfig  `yaml:"services"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// Defaults возвращает конфигурацию для локального запуска
func Defaults() Config {
	return Config{
		Database: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "buildorite_user",
			Password: "buildorite_pass",
			Database: "buildorite_db",
			SSLMode:  "disable",
			MaxConns: 10,
			MinConns: 2,
		},
		RabbitMQ: MQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
		},
		WebSocket: WSConfig{Port: 8080},
		Services:  ServicesConfig{TripServicePort: 3000},
		JWT:       JWTConfig{Secret: "dev_secret", ExpiryMinutes: 60},
		RateLimit: RateLimitConfig{WritesPerWindow: 30, Window: time.Minute},
		Log:       LogConfig{Level: "INFO"},
	}
}

// Load — загрузка из CONFIG_DIR (по умолчанию ./config) + ENV перекрывает.
// Отсутствующий файл не ошибка, битый YAML — ошибка.
func Load() (Config, error) {
	configDir := getEnv("CONFIG_DIR", "./config")
	cfg := Defaults()

	if err := readYAML(filepath.Join(configDir, "db.yaml"), &cfg.Database); err != nil {
		return cfg, err
	}
	if err := readYAML(filepath.Join(configDir, "mq.yaml"), &cfg.RabbitMQ); err != nil {
		return cfg, err
	}
	if err := readYAML(filepath.Join(configDir, "ws.yaml"), &cfg.WebSocket); err != nil {
		return cfg, err
	}

	svc := serviceFile{Services: cfg.Services, RateLimit: cfg.RateLimit, Log: cfg.Log}
	if err := readYAML(filepath.Join(configDir, "service.yaml"), &svc); err != nil {
		return cfg, err
	}
	cfg.Services, cfg.RateLimit, cfg.Log = svc.Services, svc.RateLimit, svc.Log

	// jwt.yaml допускает как секцию jwt:, так и плоскую структуру
	jwtFile := struct {
		JWT *JWTConfig `yaml:"jwt"`
	}{JWT: &cfg.JWT}
	jwtPath := filepath.Join(configDir, "jwt.yaml")
	if err := readYAML(jwtPath, &jwtFile); err != nil {
		return cfg, err
	}
	if err := readYAML(jwtPath, &cfg.JWT); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

// Validate проверяет значения после всех перекрытий
func (c Config) Validate() error {
	switch {
	case c.Services.TripServicePort <= 0:
		return fmt.Errorf("config: invalid trip service port %d", c.Services.TripServicePort)
	case c.WebSocket.Port <= 0:
		return fmt.Errorf("config: invalid ws port %d", c.WebSocket.Port)
	case strings.TrimSpace(c.JWT.Secret) == "":
		return errors.New("config: jwt secret is empty")
	case c.RateLimit.WritesPerWindow <= 0 || c.RateLimit.Window <= 0:
		return errors.New("config: rate limit must be positive")
	case c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns:
		return fmt.Errorf("config: invalid db pool size min=%d max=%d", c.Database.MinConns, c.Database.MaxConns)
	}
	return nil
}

func readYAML(path string, into any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvInt("DB_MIN_CONNS", cfg.Database.MinConns)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.RabbitMQ.User)
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	cfg.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RabbitMQ.VHost)

	cfg.WebSocket.Port = getEnvInt("WS_PORT", cfg.WebSocket.Port)
	if v := getEnv("WS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.WebSocket.AllowedOrigins = splitList(v)
	}
	cfg.Services.TripServicePort = getEnvInt("TRIP_SERVICE_PORT", cfg.Services.TripServicePort)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", cfg.JWT.ExpiryMinutes)

	cfg.RateLimit.WritesPerWindow = getEnvInt("RATE_LIMIT_WRITES_PER_MINUTE", cfg.RateLimit.WritesPerWindow)
	if v := getEnv("RATE_LIMIT_WINDOW", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Dir = getEnv("LOG_DIR", cfg.Log.Dir)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

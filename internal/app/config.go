package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Допустимые драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config описывает настройки запуска приложения.
// Значения берутся из DefaultConfig, затем перекрываются YAML-файлом
// и переменными окружения ROMS_*.
type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	MetricsAddr string        `yaml:"metrics_addr"`
	LogLevel    string        `yaml:"log_level"`
	Storage     StorageConfig `yaml:"storage"`
	Kafka       KafkaConfig   `yaml:"kafka"`
	Outbox      OutboxConfig  `yaml:"outbox"`
}

// StorageConfig выбирает бэкенд хранения.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// KafkaConfig настраивает подключение к брокерам. Пустой список брокеров
// отключает Kafka: события outbox уходят в логирующий publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// OutboxConfig настраивает фоновый publisher событий.
type OutboxConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// DefaultConfig возвращает рабочие значения для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Outbox: OutboxConfig{
			PollInterval: time.Second,
			BatchSize:    100,
		},
	}
}

// LoadConfig читает конфигурацию из YAML-файла поверх значений по
// умолчанию. Пустой путь возвращает значения по умолчанию.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// ApplyEnv перекрывает настройки переменными окружения ROMS_*.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ROMS_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("ROMS_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("ROMS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ROMS_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("ROMS_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("ROMS_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ROMS_OUTBOX_BATCH_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			c.Outbox.BatchSize = size
		}
	}
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage driver %q requires postgres_dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("metrics_addr must not be empty")
	}
	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox poll_interval must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch_size must be positive")
	}
	return nil
}

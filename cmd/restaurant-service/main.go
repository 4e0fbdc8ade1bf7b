package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/app"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("неизвестный уровень логирования, используем info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

// readConfig собирает конфигурацию: файл (флаг -config или ROMS_CONFIG),
// затем переменные окружения ROMS_* поверх.
func readConfig() (app.Config, error) {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config (fallback: ROMS_CONFIG)")
	flag.Parse()

	if configPath == "" {
		configPath = os.Getenv("ROMS_CONFIG")
	}

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return app.Config{}, err
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.Storage.Driver,
		"version":      version.String(),
	}).Info("запускаем restaurant-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("restaurant-service остановлен")
}

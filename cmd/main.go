package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/database"
	"chain-sentinel/internal/emitters"
	"chain-sentinel/internal/events"
	"chain-sentinel/internal/health"
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/logger"
	"chain-sentinel/internal/metrics"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownGrace = 10 * time.Second

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Error().Interface("panic", r).Msg("Application panicked, recovering")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	if cfg.Database.Enabled {
		if err := database.InitDB(cfg.Database); err != nil {
			logger.GetLogger().Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer database.Close()

		if err := database.RunMigrations(); err != nil {
			logger.GetLogger().Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	var emitter interfaces.FindingEmitter = &events.LogEmitter{}
	if cfg.Kafka.Enabled {
		kafkaEmitter := emitters.NewKafkaEmitter(cfg.Kafka.BrokerAddress, cfg.Kafka.Topic, cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout)
		defer func() { _ = kafkaEmitter.Close() }()
		emitter = &events.LogEmitter{WrappedEmitter: kafkaEmitter}
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewPipelineMetrics()
	m.Register(registry)

	pl, err := pipeline.New(cfg, emitter, m, logger.Component("pipeline"))
	if err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to construct pipeline")
	}
	defer pl.Close()

	installDefaultRules(pl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pl.Start(ctx); err != nil {
		logger.GetLogger().Fatal().Err(err).Msg("Failed to start pipeline")
	}

	server := health.NewServer(cfg.HealthAddr, pl, registry)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Error().Err(err).Msg("Health server stopped")
		}
	}()
	health.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.GetLogger().Info().Msg("Shutting down")
	health.SetReady(false)
	cancel()
	pl.Wait(shutdownGrace)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// installDefaultRules wires a conservative default rule set when webhook or
// chat channels are configured. Operators add finer-grained rules through
// the registration API.
func installDefaultRules(pl *pipeline.Pipeline) {
	rules := []models.AlertRule{
		{
			ID:          "critical-threats",
			Name:        "Critical threats, any network",
			MinSeverity: models.SeverityCritical,
			Channels:    []string{"webhook"},
			Priority:    1,
			Enabled:     true,
			Cooldown:    time.Minute,
		},
		{
			ID:          "high-threats",
			Name:        "High severity threats, any network",
			MinSeverity: models.SeverityHigh,
			Channels:    []string{"webhook"},
			Priority:    2,
			Enabled:     true,
			Cooldown:    5 * time.Minute,
		},
	}

	for _, rule := range rules {
		if err := pl.AddRule(rule); err != nil {
			logger.GetLogger().Warn().Err(err).Str("rule", rule.ID).Msg("Skipping default alert rule")
		}
	}
}

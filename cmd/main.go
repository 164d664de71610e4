package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/config"
	"scorecard-engine/infrastructure"
	"scorecard-engine/interfaces"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := infrastructure.NewLogger(infrastructure.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
		File:   cfg.LogFile,
	})
	if err != nil {
		logrus.Fatalf("failed to initialize logger: %v", err)
	}
	log := infrastructure.WithModule(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewPrometheusMetrics(reg)

	// Store
	store, err := infrastructure.OpenStore(cfg, infrastructure.WithModule(logger, "store"))
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}

	deps := application.Deps{
		Store:       store,
		Metrics:     metrics,
		Logger:      infrastructure.WithModule(logger, "application"),
		Policy:      cfg.Policy.Policy,
		TestLinkTTL: cfg.Policy.TestLinkTTL,
	}

	// Summaries: queue plus worker, only when a summarizer is configured
	var (
		rmq        *infrastructure.RabbitMQ
		summarizer application.Summarizer
	)
	switch cfg.Summarizer {
	case config.SummarizerGemini:
		summarizer = infrastructure.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModels, infrastructure.WithModule(logger, "gemini"))
	case config.SummarizerVertexAI:
		vc, err := infrastructure.NewVertexAIClient(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize Vertex AI")
		}
		defer vc.Close()
		summarizer = vc
	}
	if summarizer != nil {
		rmq, err = infrastructure.NewRabbitMQ(cfg.RabbitMQURL, cfg.QueueName, infrastructure.WithModule(logger, "rabbitmq"))
		if err != nil {
			log.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		deps.Queue = rmq
	}

	svc := application.NewService(deps)

	if rmq != nil {
		worker := application.NewSummaryWorker(svc, summarizer)
		if err := rmq.ConsumeSummaryJobs(ctx, worker.Handle); err != nil {
			log.WithError(err).Fatal("failed to start summary worker")
		}
		log.Info("📥 Summary worker started")
	}

	// Setup Gin router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), interfaces.RequestLogger(infrastructure.WithModule(logger, "http"), metrics))

	var limiter *interfaces.IPRateLimiter
	if cfg.RateLimitEnabled {
		limiter = interfaces.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	interfaces.NewHTTPHandler(router, svc, limiter, infrastructure.WithModule(logger, "http"))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 Server running on %s", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

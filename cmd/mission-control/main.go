package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/application/usecase"

	// Domain
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/mission-control/internal/infrastructure/cache/redis"
	kafkaInfra "github.com/dreschagin/mission-control/internal/infrastructure/messaging/kafka"
	natsInfra "github.com/dreschagin/mission-control/internal/infrastructure/messaging/nats"
	snsNotifier "github.com/dreschagin/mission-control/internal/infrastructure/notification/sns"
	telegramNotifier "github.com/dreschagin/mission-control/internal/infrastructure/notification/telegram"
	wsInfra "github.com/dreschagin/mission-control/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/mission-control/internal/infrastructure/observability/cloudwatch"
	promInfra "github.com/dreschagin/mission-control/internal/infrastructure/observability/prometheus"
	dynamodbRepo "github.com/dreschagin/mission-control/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/mission-control/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/mission-control/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/mission-control/internal/interfaces/http"
	"github.com/dreschagin/mission-control/internal/interfaces/http/handler"
	"github.com/dreschagin/mission-control/internal/interfaces/http/middleware"
	"github.com/dreschagin/mission-control/internal/refresh"

	// Shared
	"github.com/dreschagin/mission-control/pkg/config"
	"github.com/dreschagin/mission-control/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	// 1. Загружаем конфигурацию; невалидные пороги останавливают запуск
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.NewWithOptions(cfg.Log.Level, logger.Options{
		Pretty:   cfg.Log.Pretty,
		FilePath: cfg.Log.FilePath,
	})
	log.Info("Starting Mission Control alert policy service")

	// 3. Подключаемся к БД
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	// 4. Dependency Injection - Infrastructure Layer

	// Repository
	evaluationRepository := postgres.NewPostgresEvaluationRepository(db)
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = evaluationRepository.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		log.Error("Failed to apply database schema", err)
		os.Exit(1)
	}

	readinessChecks := []refresh.Check{{Name: "postgres", Ping: evaluationRepository.Ping}}

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	policyMetrics := promInfra.New(registry)

	// Redis cache
	var cache applicationPort.Cache
	if cfg.Redis.Enabled {
		cacheImpl, initErr := redisCache.NewRedisCache(redisCache.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			TTL:       cfg.Redis.TTL,
			Namespace: cfg.Redis.Namespace,
		})
		if initErr != nil {
			log.Warn("Failed to connect to Redis, continuing without cache", "error", initErr.Error())
		} else {
			cache = cacheImpl
			defer cacheImpl.Close()
			readinessChecks = append(readinessChecks, refresh.Check{Name: "redis", Ping: cacheImpl.Ping})
			log.Info("Redis cache initialized", "addr", cfg.Redis.Addr)
		}
	} else {
		log.Warn("Redis cache is disabled")
	}

	// 5. Dependency Injection - Domain Layer

	failoverSites, err := cfg.Failover.FailoverSites()
	if err != nil {
		log.Error("Failed to load failover sites", err)
		os.Exit(1)
	}
	engine := service.NewAlertPolicyEngine(cfg.Policy, service.ScheduleFailoverTargets(failoverSites, time.Now()))
	for _, target := range engine.Targets() {
		log.Info("Failover target scheduled", "site", target.Site, "zone", target.Zone, "at", target.At.Format(time.RFC3339))
	}

	// 5.5. CloudWatch Integration

	// CloudWatch Metrics Publisher
	var metricsPublisher applicationPort.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(context.Background(),
			cloudwatch.MetricsPublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				BufferSize:        cfg.CloudWatch.MetricsBufferSize,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// CloudWatch Logs Publisher
	var logsPublisher applicationPort.LogPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsPublisher(context.Background(),
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BufferSize:      cfg.CloudWatch.LogsBufferSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 5.6. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 5.7. Snapshot archive (S3) и журнал переходов (DynamoDB)
	var snapshotArchive applicationPort.SnapshotArchive
	if cfg.S3.Enabled {
		archiveImpl, initErr := s3storage.NewSnapshotArchive(context.Background(), s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			KeyPrefix:       cfg.S3.KeyPrefix,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot archive", initErr)
			os.Exit(1)
		}
		snapshotArchive = archiveImpl
		log.Info("Snapshot archive initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 snapshot archive is disabled")
	}

	var transitionRepo applicationPort.AlertTransitionRepository
	if cfg.Dynamo.Enabled {
		repoImpl, initErr := dynamodbRepo.NewAlertTransitionRepository(context.Background(), dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableAlertTransitions,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
			TTL:             time.Duration(cfg.Dynamo.TTLDays) * 24 * time.Hour,
		})
		if initErr != nil {
			log.Error("Failed to initialize alert transition repository", initErr)
			os.Exit(1)
		}
		transitionRepo = repoImpl
		log.Info("Alert transition journal initialized", "provider", "dynamodb")
	} else {
		log.Warn("DynamoDB transition journal is disabled, transitions are derived from history")
	}

	// 5.8. Каналы критических объявлений
	announcers := make([]applicationPort.AnnouncementNotifier, 0, 2)
	if cfg.Telegram.Enabled {
		notifier, initErr := telegramNotifier.NewNotifier(telegramNotifier.Config{
			BotToken:       cfg.Telegram.BotToken,
			ChatID:         cfg.Telegram.ChatID,
			RatePerMinute:  cfg.Telegram.RatePerMinute,
			RequestTimeout: cfg.Telegram.RequestTimeout,
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize Telegram notifier", initErr)
			os.Exit(1)
		}
		announcers = append(announcers, notifier)
		log.Info("Telegram announcements enabled", "chat_id", cfg.Telegram.ChatID)
	}
	if cfg.SNS.Enabled {
		notifier, initErr := snsNotifier.NewNotifier(context.Background(), snsNotifier.Config{
			TopicARN:        cfg.SNS.TopicARN,
			Region:          cfg.SNS.Region,
			Endpoint:        cfg.SNS.Endpoint,
			AccessKeyID:     cfg.SNS.AccessKeyID,
			SecretAccessKey: cfg.SNS.SecretAccessKey,
		})
		if initErr != nil {
			log.Error("Failed to initialize SNS notifier", initErr)
			os.Exit(1)
		}
		announcers = append(announcers, notifier)
		log.Info("SNS announcements enabled", "topic", cfg.SNS.TopicARN)
	}
	if len(announcers) == 0 {
		log.Warn("No external announcement channels configured, announcements go to WebSocket only")
	}

	// 6. Dependency Injection - Application Layer (Use Cases)

	evaluateSnapshotUC := usecase.NewEvaluateSnapshotUseCase(
		engine,
		evaluationRepository,
		hub,
		usecase.EvaluateSnapshotDeps{
			Cache:         cache,            // nil если Redis выключен
			Metrics:       metricsPublisher, // nil если CloudWatch выключен
			PolicyMetrics: policyMetrics,
			Events:        eventPublisher, // nil если NATS выключен
			Archive:       snapshotArchive,
			Transitions:   transitionRepo,
			Announcers:    announcers,
		},
		log,
	)

	getCurrentEvaluationUC := usecase.NewGetCurrentEvaluationUseCase(evaluationRepository, cache, log)
	getEvaluationHistoryUC := usecase.NewGetEvaluationHistoryUseCase(evaluationRepository, cache, log)
	listAlertTransitionsUC := usecase.NewListAlertTransitionsUseCase(transitionRepo, evaluationRepository)
	refreshEvaluationUC := usecase.NewRefreshEvaluationUseCase(evaluateSnapshotUC, evaluationRepository, log)
	purgeEvaluationsUC := usecase.NewPurgeEvaluationsUseCase(
		evaluationRepository,
		time.Duration(cfg.Refresh.RetentionDays)*24*time.Hour,
		log,
	)

	refreshRunner := refresh.NewRunner(refreshEvaluationUC, log, cfg.Refresh.Interval)
	failoverCountdownUC := usecase.NewFailoverCountdownUseCase(
		engine,
		hub,
		policyMetrics,
		refreshRunner.NextRunAt,
		log,
	)

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	handlers := httpInterface.Handlers{
		Snapshot: handler.NewSnapshotAPIHandler(evaluateSnapshotUC, policyMetrics, cfg.Security.MaxSnapshotBytes, log),
		Evaluation: handler.NewEvaluationAPIHandler(
			getCurrentEvaluationUC,
			getEvaluationHistoryUC,
			listAlertTransitionsUC,
			7*24*time.Hour,
			log,
		),
		Policy:    handler.NewPolicyAPIHandler(engine, failoverCountdownUC),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, 0, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, log),
		Refresh:   refresh.NewHandler(refreshRunner, readinessChecks...),
	}

	// Router
	router := httpInterface.NewRouter(handlers, policyMetrics, cfg.Security, log)
	defer router.Close()

	// 8. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем WebSocket hub
	go hub.Run(ctx)

	// Периодическая переоценка последнего снимка
	go refreshRunner.Start(ctx)

	// Тик обратного отсчета failover
	go func() {
		ticker := time.NewTicker(cfg.Failover.TickInterval)
		defer ticker.Stop()

		log.Info("Failover countdown started", "interval", cfg.Failover.TickInterval.String())

		for {
			select {
			case <-ticker.C:
				failoverCountdownUC.Tick(ctx)
			case <-ctx.Done():
				log.Info("Failover countdown stopped")
				return
			}
		}
	}()

	// Очистка старых оценок
	go func() {
		ticker := time.NewTicker(cfg.Refresh.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				if _, err := purgeEvaluationsUC.Execute(ctx, now); err != nil {
					log.Error("Failed to purge evaluations", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Kafka consumer снимков
	var snapshotConsumer applicationPort.SnapshotConsumer
	if cfg.Kafka.Enabled {
		consumerImpl, initErr := kafkaInfra.NewSnapshotConsumer(kafkaInfra.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, log)
		if initErr != nil {
			log.Error("Failed to initialize Kafka snapshot consumer", initErr)
			os.Exit(1)
		}
		consumerImpl.OnReject(func(reason string) {
			policyMetrics.ObserveSnapshotRejected(usecase.SourceKafka, reason)
		})
		snapshotConsumer = consumerImpl

		go func() {
			err := snapshotConsumer.Consume(ctx, func(ctx context.Context, snapshot *entity.MetricsSnapshot) error {
				_, err := evaluateSnapshotUC.Execute(ctx, snapshot, usecase.SourceKafka)
				return err
			})
			if err != nil {
				log.Error("Kafka snapshot consumer stopped", err)
			}
		}()
		log.Info("Kafka snapshot consumer started", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	} else {
		log.Warn("Kafka snapshot ingestion is disabled")
	}

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Запускаем сервер в отдельной goroutine
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем фоновые процессы
	cancel()
	if snapshotConsumer != nil {
		if err := snapshotConsumer.Close(); err != nil {
			log.Error("Failed to close Kafka consumer", err)
		}
	}

	// Даем время на завершение текущих операций
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Flush CloudWatch buffers before shutdown
	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if logsPublisher != nil {
		log.Info("Flushing CloudWatch logs buffer...")
		log.Close()
		if err := logsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch logs", err)
		}
	}

	log.Info("Server stopped gracefully")
}

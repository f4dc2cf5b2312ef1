package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/events"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/handler"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/repository"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/clock"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/config"
	"github.com/cloud-wave-best-zizon/inventory-service/pkg/tls"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type store interface {
	service.ProductRepository
	service.OrderRepository
	service.AdjustmentRepository
}

func main() {
	// Config 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Logger 초기화
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()
	hub := events.NewHub(events.DefaultSubscriptionBuffer, logger)
	defer hub.Close()

	// Repository 초기화
	var repo store
	if cfg.LocalMode {
		logger.Info("Running in local mode with in-memory store")
		repo = repository.NewMemoryStore(clk, hub)
	} else {
		dynamoClient, err := repository.NewDynamoDBClient(ctx, cfg)
		if err != nil {
			logger.Fatal("Failed to create DynamoDB client", zap.Error(err))
		}
		repo = repository.NewDynamoStore(dynamoClient, repository.Tables{
			Products:         cfg.ProductTableName,
			Orders:           cfg.OrderTableName,
			StockAdjustments: cfg.AdjustmentTableName,
		}, clk, hub)
	}

	// Service 초기화
	productService := service.NewProductService(repo, hub, clk, logger)
	stockService := service.NewStockService(repo, repo, clk, logger)
	orderService := service.NewOrderService(repo, repo, productService, service.FulfillmentOptions{
		AbortOnMissingProduct: cfg.MissingProductPolicy == config.MissingProductAbort,
		Compensate:            cfg.CompensateOnFailure,
	}, clk, logger)
	dashboardService := service.NewDashboardService(repo, repo, repo, productService, hub, service.DashboardOptions{
		LowStockThreshold:   cfg.LowStockThreshold,
		RecentActivityLimit: cfg.RecentActivityLimit,
	}, logger)

	// Kafka 초기화
	var consumer *events.KafkaConsumer
	var producer *events.KafkaProducer
	if cfg.KafkaEnabled() {
		producer = events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaChangeTopic, cfg.KafkaFailureTopic, logger)
		go producer.Run(ctx, hub)

		consumer = events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaFulfillmentTopic, cfg.KafkaGroupID, orderService, logger)
		consumer.SetFailurePublisher(producer)
		consumer.Start()
	} else {
		logger.Info("Kafka is disabled")
	}

	// Handler, Router 설정
	router := handler.NewRouter(handler.Handlers{
		Products:  handler.NewProductHandler(productService, logger),
		Stock:     handler.NewStockHandler(stockService, logger),
		Orders:    handler.NewOrderHandler(orderService, logger),
		Dashboard: handler.NewDashboardHandler(dashboardService, logger),
	}, logger)

	tlsConfig, tlsSource, err := tls.LoadTLSConfig(ctx, &tls.TLSConfig{
		Enabled:    cfg.TLSEnabled,
		SocketPath: cfg.SPIRESocketPath,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to load TLS config", zap.Error(err))
	}
	if tlsSource != nil {
		go tlsSource.WatchCertificates(ctx, 30*time.Second)
	}

	// Server 시작
	srv := &http.Server{
		Addr:      ":" + cfg.Port,
		Handler:   router,
		TLSConfig: tlsConfig,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.Bool("tls", tlsConfig != nil),
			zap.Bool("local_mode", cfg.LocalMode))

		var err error
		if tlsConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if consumer != nil {
		consumer.Stop()
	}
	cancel()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if err := tlsSource.Close(); err != nil {
		logger.Error("Failed to close X509 source", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}

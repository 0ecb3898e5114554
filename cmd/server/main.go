package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"threelance.backend/internal/config"
	"threelance.backend/internal/infrastructure/blockchain"
	pgsource "threelance.backend/internal/infrastructure/datasources/postgres"
	"threelance.backend/internal/infrastructure/indexer"
	"threelance.backend/internal/infrastructure/jobs"
	"threelance.backend/internal/infrastructure/models"
	"threelance.backend/internal/infrastructure/repositories"
	"threelance.backend/internal/interfaces/http/handlers"
	"threelance.backend/internal/interfaces/http/middleware"
	"threelance.backend/internal/usecases"
	"threelance.backend/pkg/ether"
	"threelance.backend/pkg/jwt"
	"threelance.backend/pkg/logger"
	"threelance.backend/pkg/redis"
)

const queryCachePrefix = "threelance"

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := pgsource.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return pgsource.OpenGorm(sqlDB)
	}
	migrateDB = func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }
	dialEVM   = func(factory *blockchain.ClientFactory, rpcURL string) (*blockchain.EVMClient, error) {
		return factory.GetEVMClient(rpcURL)
	}
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()
	ctx := context.Background()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := migrateDB(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info(ctx, "Database ready")

	clientFactory := blockchain.NewClientFactory()
	defer clientFactory.CloseAll()

	evmClient, err := dialEVM(clientFactory, cfg.Blockchain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to rpc %s: %w", cfg.Blockchain.RPCURL, err)
	}
	if want := big.NewInt(cfg.Blockchain.ChainID); evmClient.ChainID().Cmp(want) != 0 {
		logger.Warn(ctx, "RPC chain id differs from EVM_CHAIN_ID",
			zap.String("rpc", evmClient.ChainID().String()),
			zap.String("configured", want.String()),
		)
	}

	var operator *blockchain.Signer
	if cfg.Blockchain.OperatorPrivateKey != "" {
		operator, err = blockchain.NewSigner(cfg.Blockchain.OperatorPrivateKey)
		if err != nil {
			return fmt.Errorf("invalid operator key: %w", err)
		}
		logger.Info(ctx, "Operator signer loaded", zap.String("address", operator.Address().Hex()))
		if balance, err := evmClient.GetBalance(ctx, operator.Address().Hex()); err != nil {
			logger.Warn(ctx, "Operator balance unavailable", zap.Error(err))
		} else if balance.Sign() == 0 {
			logger.Warn(ctx, "Operator account has no funds; createService will fail", zap.String("address", operator.Address().Hex()))
		} else {
			logger.Info(ctx, "Operator balance", zap.String("eth", ether.FormatEther(balance)))
		}
	} else {
		logger.Warn(ctx, "No operator key configured; POST /services is disabled")
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)

	smartContractRepo := repositories.NewSmartContractRepository(db)
	txRepo := repositories.NewServiceTransactionRepository(db)
	uow := repositories.NewUnitOfWork(db)

	queryCache := redis.NewQueryCache(queryCachePrefix, cfg.Indexer.CacheTTL)
	graphClient := indexer.NewGraphClient(cfg.Indexer.URL, cfg.Indexer.Timeout)

	contractUsecase := usecases.NewContractUsecase(smartContractRepo, txRepo, uow, evmClient, cfg.Blockchain.ContractAddress, cfg.Blockchain.ReceiptPoll)
	serviceUsecase := usecases.NewServiceUsecase(contractUsecase, graphClient, queryCache, txRepo, operator, cfg.Blockchain.NativeCurrencyUSD)
	transactionUsecase := usecases.NewTransactionUsecase(txRepo, contractUsecase, evmClient, queryCache, cfg.Blockchain.ReceiptPoll).
		WithPendingTimeout(cfg.Blockchain.PendingTimeout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := jobs.NewReceiptWatcher(transactionUsecase, cfg.Blockchain.WatchInterval)
	go watcher.Start(jobCtx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.NewHTTPMetrics(registry).Middleware())
	r.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r, evmClient)
	registerMetricsRoute(r, registry)
	registerAPIV1Routes(r, routeDeps{
		serviceHandler:     handlers.NewServiceHandler(serviceUsecase),
		transactionHandler: handlers.NewTransactionHandler(transactionUsecase),
		contractHandler:    handlers.NewContractHandler(contractUsecase),
		authMiddleware:     middleware.AuthMiddleware(jwtService),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-quit:
		case <-jobCtx.Done():
			return
		}
		logger.Info(context.Background(), "Shutting down server")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "ThreeLance backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("api", "http://localhost:"+cfg.Server.Port+"/api/v1"),
	)

	err = runServer(srv)
	watcher.Stop()
	cancel()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

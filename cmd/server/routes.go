package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"threelance.backend/internal/interfaces/http/handlers"
	"threelance.backend/internal/interfaces/http/middleware"
	"threelance.backend/pkg/jwt"
)

const (
	serviceName    = "threelance-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	serviceHandler     *handlers.ServiceHandler
	transactionHandler *handlers.TransactionHandler
	contractHandler    *handlers.ContractHandler
	authMiddleware     gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine, origins []string) {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-Idempotency-Hit"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	wildcard := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	r.Use(cors.New(cfg))
}

const healthRPCTimeout = 3 * time.Second

// chainHead reports the latest block of the configured RPC.
type chainHead interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
}

func registerHealthRoute(r *gin.Engine, chain chainHead) {
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		}
		if chain == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), healthRPCTimeout)
		defer cancel()
		block, err := chain.GetBlockNumber(ctx)
		if err != nil {
			body["status"] = "degraded"
			body["rpc"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["rpc"] = "ok"
		body["blockNumber"] = block
		c.JSON(http.StatusOK, body)
	})
}

func registerMetricsRoute(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	{
		services := v1.Group("/services")
		{
			services.GET("", d.serviceHandler.ListServices)
			services.GET("/count", d.serviceHandler.CountServices)
			services.GET("/:id", d.serviceHandler.GetService)
			services.POST("/prepare", d.serviceHandler.PrepareCreateService)
			services.POST("",
				d.authMiddleware,
				middleware.RequireScope(jwt.ScopeServicesWrite),
				middleware.IdempotencyMiddleware(),
				d.serviceHandler.CreateService,
			)
		}

		v1.GET("/indexer/services", d.serviceHandler.ListIndexedServices)

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", middleware.IdempotencyMiddleware(), d.transactionHandler.SubmitTransaction)
			transactions.GET("", d.transactionHandler.ListTransactions)
			transactions.GET("/:hash", d.transactionHandler.GetTransaction)
		}

		contracts := v1.Group("/contracts")
		{
			contracts.GET("/threelance", d.contractHandler.GetThreeLance)
			contracts.GET("", d.authMiddleware, middleware.RequireScope(jwt.ScopeContractsRead), d.contractHandler.ListDeployments)
		}
	}
}

package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"desco-report-backend/config"
	_ "desco-report-backend/docs"
	"desco-report-backend/internal/health"
	"desco-report-backend/internal/mw"
)

// NewRouter assembles the HTTP surface. gate may be nil when the dependency
// check is disabled; readiness then always reports healthy.
func NewRouter(cfg *config.ServerConfig, h *Handler, gate *health.Gate, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestLogger(log), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", health.LiveHandler())
	if gate != nil {
		r.GET("/readyz", gate.ReadyHandler())
	} else {
		r.GET("/readyz", health.LiveHandler())
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/push/vapid-public-key", h.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.RequireAuth(h.tokens, h.denylist, h.users))
		{
			authed.GET("/auth/me", h.Me)
			authed.POST("/auth/logout", h.Logout)

			// Provider-backed reads are identical for every authenticated
			// caller, so the URI-keyed cache is safe here.
			authed.GET("/desco/balance/:accountNo/:meterNo", caching, h.GetBalance)
			authed.GET("/desco/daily-consumption/:accountNo/:meterNo", caching, h.GetDailyConsumption)
			authed.GET("/desco/monthly-consumption/:accountNo/:meterNo", caching, h.GetMonthlyConsumption)
			authed.GET("/desco/recharge-history/:accountNo/:meterNo", caching, h.GetRechargeHistory)
			authed.GET("/desco/recent-events/:accountNo", caching, h.GetRecentEvents)
			authed.GET("/desco/location/:accountNo", caching, h.GetLocation)

			authed.POST("/desco/sync-account", h.SyncAccount)
			authed.GET("/desco/accounts", h.ListAccounts)
			authed.POST("/desco/accounts", h.RegisterAccount)

			authed.GET("/push/subscriptions", h.GetSubscription)
			authed.PUT("/push/subscriptions", h.PutSubscription)
			authed.DELETE("/push/subscriptions", h.DeleteSubscription)
		}
	}

	return r
}

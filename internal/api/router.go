package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"repair-tracker-backend/config"
	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, server config.ServerConfig) *gin.Engine {
	r := gin.Default()
	r.Use(metrics.Middleware())

	rateLimiter := mw.RateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst, server.RequestIPHeader)

	// The catalogs only change with a deploy.
	ttl := time.Duration(server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Actor())
	{
		api.GET("/statuses", caching, h.GetStatuses)
		api.GET("/event-types", caching, h.GetEventTypes)

		devices := api.Group("/devices/:id")
		devices.GET("", h.GetDevice)
		devices.POST("/transitions", h.PostTransition)
		devices.GET("/timeline", h.GetTimeline)
		devices.GET("/durations", h.GetDurations)
		devices.GET("/countdown", h.GetCountdown)
		devices.GET("/countdown/stream", h.StreamCountdown)

		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

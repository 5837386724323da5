package server

import (
	"net/http"

	"converter-service/internal/handler"
	"converter-service/internal/middleware"
	"converter-service/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter wires middleware and routes. The rate limiter is skipped when
// cfg.HTTP.RateLimit is empty, and every origin is allowed when no origins
// are configured.
func NewRouter(cfg config.Config, h *handler.CurrencyHandler, logger *logrus.Logger) (*gin.Engine, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.AllowOrigins,
		AllowAllOrigins:  len(cfg.HTTP.AllowOrigins) == 0,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Location", middleware.RequestIDHeader},
		AllowCredentials: false,
	}))

	if cfg.HTTP.RateLimit != "" {
		l, err := middleware.NewIPLimiter(cfg.HTTP.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(middleware.RateLimit(l, logger))
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	currency := r.Group("/currency")
	{
		currency.POST("/convert", h.Convert)
		currency.GET("/rate", h.GetRate)
		currency.GET("/history", h.GetHistory)
		currency.POST("/convert/async", h.StartConversion)
		currency.GET("/convert/async/:id", h.ConversionStatus)
		currency.POST("/snapshots/refresh", h.RefreshSnapshots)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r, nil
}

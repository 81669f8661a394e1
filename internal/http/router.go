// Package httpapi wires the Gin engine: middleware order, CORS and security
// headers, operational endpoints and the versioned translation API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-translate-backend/internal/app"
	"github.com/tbourn/go-translate-backend/internal/config"
	"github.com/tbourn/go-translate-backend/internal/http/handlers"
	"github.com/tbourn/go-translate-backend/internal/http/middleware"
)

// Rate-limit tokens charged per request. An entity translation fans out to
// one provider call per field.
const (
	costTranslate       = 1
	costTranslateEntity = 5
	maxBodyBytes        = 1 << 20
)

// RegisterRoutes installs middleware and routes on r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. UserIdentity (before logging so lines carry the user)
//  4. RequestLogger with redaction
//  5. Recovery
//  6. Body size limit
//  7. Metrics
//  8. CORS and security headers
//
// Idempotency keys and the rate limiter run per route on the API group so
// that a replayed entity translation is not charged against the limit.
func RegisterRoutes(r *gin.Engine, a *app.App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.UserIdentity())
	r.Use(middleware.RequestLogger(middleware.RedactOptions{MaskHeaders: []string{"X-API-Key"}}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		Translator: a.Translator,
		Jobs:       a.Jobs,
		Entities:   a.Entities,
		Catalog:    a.Languages,
		Credits:    a.Credits,
		Journal:    a.History,
		Progress:   a.Hub,
	})
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	idem := middleware.IdempotencyKeys(middleware.IdempotencyOptions{MaxLen: 200}, a.IdempotencyExists)

	api := groupWithPrefix(r, cfg.APIBasePath)

	// The websocket is mounted before gzip, which would wrap the hijacked
	// connection.
	api.GET("/ws", rl.Handler(), h.StreamProgress)

	api.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		api.POST("/translate", middleware.Cost(costTranslate), rl.Handler(), h.Translate)

		api.POST("/entities", rl.Handler(), h.CreateEntity)
		api.GET("/entities/:id", rl.Handler(), h.GetEntity)
		api.GET("/entities/:id/translations", rl.Handler(), h.ListEntityTranslations)
		api.POST("/entities/:id/translate", idem, middleware.Cost(costTranslateEntity), rl.Handler(), h.TranslateEntity)

		api.GET("/jobs/:id", rl.Handler(), h.GetJob)

		api.GET("/languages", rl.Handler(), h.ListLanguages)
		api.GET("/languages/:source/targets", rl.Handler(), h.AvailableTargets)
		api.GET("/schemas", rl.Handler(), h.ListSchemas)
		api.GET("/schemas/:category", rl.Handler(), h.GetSchema)

		api.GET("/credits", rl.Handler(), h.GetCredits)
		api.GET("/history", rl.Handler(), h.ListHistory)
		api.POST("/history/:id/verify", rl.Handler(), h.VerifyTranslation)
	}
}

// corsMiddleware allows every origin when none is configured, otherwise
// only the listed ones. Credentials are never allowed.
func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match",
		},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(c)
}

// limitBody caps request bodies; reads beyond maxBytes fail and the JSON
// binding reports a 400.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

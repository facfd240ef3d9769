// Package httpapi wires the Gin transport to the floor services, the
// middleware chain, and the route handlers. Cross-cutting concerns live here:
// tracing, correlation IDs, redacted access logs, panic recovery, metrics,
// idempotency, rate limiting, CORS, and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/docs"
	"github.com/tbourn/hoststand/internal/http/handlers"
	"github.com/tbourn/hoststand/internal/http/middleware"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
)

// seatPartyScope is the idempotency scope of the only write that takes a key.
const seatPartyScope = "seat-party"

// Options carries what RegisterRoutes needs besides the services.
type Options struct {
	Config config.Config
	DB     *gorm.DB

	// Redis switches rate limiting to the shared token bucket. Nil keeps
	// the in-process limiter.
	Redis *redis.Client

	// Registerer and Gatherer back the HTTP collectors and /metrics.
	// Nil means the Prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// RegisterRoutes attaches the middleware chain and every endpoint to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger with redaction
//  4. Recovery, after the logger so panics are logged with the request
//  5. Body size limit
//  6. gzip
//  7. Metrics
//  8. Idempotency validator, before the limiter so replays bypass it
//  9. Rate limiter
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, f *services.Floor, opts Options) error {
	if f == nil {
		return errors.New("httpapi: nil floor services")
	}
	cfg := opts.Config
	reg, gat := opts.Registerer, opts.Gatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gat == nil {
		gat = prometheus.DefaultGatherer
	}

	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	httpMetrics, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return err
	}
	r.Use(httpMetrics.Handler())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gat, promhttp.HandlerOpts{})))

	db := opts.DB
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: seatPartyScope, MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			if db == nil {
				return false, nil
			}
			_, err := repo.GetIdempotency(ctx, db, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))

	if opts.Redis != nil {
		r.Use(middleware.NewRedisRateLimiter(opts.Redis, cfg.RateRPS, cfg.RateBurst, middleware.KeyByStationOrIP()).Handler())
	} else {
		r.Use(middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByStationOrIP()).Handler())
	}

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", health(db))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(f.Seating, f.Reservations, f.Availability, f.Waitlist)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Host stand
		api.GET("/host", h.HostAction)
		api.POST("/host", h.HostAction)
		api.GET("/host/dashboard", h.Dashboard)
		api.POST("/host/check-in", h.CheckIn)
		api.POST("/host/check-walk-in", h.CheckWalkIn)
		api.POST("/host/seat-party", h.SeatParty)
		api.POST("/host/complete-service", h.CompleteService)
		api.POST("/host/tables/:number/clean", h.MarkTableClean)
		api.GET("/tables", h.ListTables)

		// Reservations
		api.POST("/availability", h.CheckAvailability)
		api.POST("/reservations", h.CreateReservation)
		api.GET("/reservations/lookup", h.LookupReservation)
		api.PATCH("/reservations/:id", h.ModifyReservation)
		api.POST("/reservations/:id/cancel", h.CancelReservation)
		api.POST("/reservations/:id/hold", h.HoldTable)

		// Waitlist
		api.GET("/waitlist", h.ListWaitlist)
		api.POST("/waitlist", h.AddWaitlist)
		api.GET("/waitlist/estimate", h.EstimateWait)
		api.POST("/waitlist/:id/notify", h.NotifyWaitlist)
		api.PATCH("/waitlist/:id", h.UpdateWaitlist)
		api.DELETE("/waitlist/:id", h.RemoveWaitlist)
	}
	return nil
}

// useCORS allows every origin when no allowlist is configured, else echoes
// allowlisted origins.
func useCORS(r *gin.Engine, origins []string) {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.StationHeader, middleware.HeaderIdempotencyKey, "If-None-Match",
	}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	expose := []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderReplayed}

	if len(origins) == 0 {
		// ACAO is forced even without an Origin header so plain health checks see it.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    expose,
			AllowCredentials: false, // must stay false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    expose,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// health reports ok, or 503 when the store does not answer a ping.
func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "db": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps request bodies at maxBytes. Reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

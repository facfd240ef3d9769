package cli

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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/hoststand/internal/config"
	"github.com/tbourn/hoststand/internal/events"
	httpapi "github.com/tbourn/hoststand/internal/http"
	"github.com/tbourn/hoststand/internal/observability"
	"github.com/tbourn/hoststand/internal/services"
	"github.com/tbourn/hoststand/internal/sweeper"
	"github.com/tbourn/hoststand/internal/sysutil"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the host-stand API and the no-show sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, migrate bool) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg, migrate)
	if err != nil {
		return err
	}
	defer closeStore(db)

	sink, err := observability.NewPromSink(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	deps := services.Deps{DB: db, Metrics: sink}
	if cfg.AMQP.URL != "" {
		pub := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		defer func() { _ = pub.Close() }()
		deps.Events = pub
	}
	f, err := newFloor(cfg, deps)
	if err != nil {
		return err
	}

	rdb := connectRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, f, httpapi.Options{Config: cfg, DB: db, Redis: rdb}); err != nil {
		return err
	}

	if cfg.Floor.NoShowSweepEvery > 0 {
		sw := &sweeper.Sweeper{Interval: cfg.Floor.NoShowSweepEvery, Tasks: f.SweepTasks()}
		go func() { _ = sw.Run(ctx) }()
	}

	srv := &http.Server{
		Addr:              ":" + sysutil.FirstNonEmpty(cfg.Port, "8080"),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return serveHTTP(ctx, srv)
}

// serveHTTP runs srv until ctx ends, then drains in-flight requests.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("hoststand listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// connectRedis returns a client when Addr is set and the server answers.
// Otherwise nil, and the API falls back to the in-process limiter.
func connectRedis(ctx context.Context, rc config.RedisConfig) *redis.Client {
	if rc.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", rc.Addr).Msg("redis unreachable; using local rate limiter")
		_ = rdb.Close()
		return nil
	}
	return rdb
}

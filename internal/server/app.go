// Package server assembles the table backend: storage, write events, the
// HTTP API and metrics, and runs it until the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/omnidesk/internal/events"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/server/api"
	"github.com/dmitrijs2005/omnidesk/internal/server/config"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/memory"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   store.Store
	events  events.Publisher
	redis   *redis.Client
	handler http.Handler
}

// NewApp opens the store and the event bus described by c. Logs go to out.
func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger := logging.NewJSON(out, c.Level())

	s, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: s, events: events.Nop()}

	if c.RedisAddr != "" {
		client, err := events.NewRedisClient(ctx, c.RedisAddr, "", 0)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("events init error: %w", err)
		}
		app.redis = client
		app.events = events.NewRedisBus(client, c.RedisChannel, logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(gin.ReleaseMode)
	h := &api.Handler{Store: s, Events: app.events, Logger: logger}
	app.handler = api.NewRouter(h, []byte(c.SecretKey), api.NewMetrics(reg), reg)

	return app, nil
}

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (store.Store, error) {
	if c.DatabaseDSN != "" {
		logger.Info(ctx, "using postgres store")
		return postgres.Open(ctx, c.DatabaseDSN)
	}
	logger.Info(ctx, "using in-memory store", "data_dir", c.DataDir)
	return memory.New(memory.WithDataDir(c.DataDir), memory.WithLogger(logger))
}

// Handler returns the HTTP API.
func (app *App) Handler() http.Handler { return app.handler }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the API until ctx is cancelled or a termination signal
// arrives, then drains in-flight requests and releases the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	listen, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		app.close(ctx)
		return err
	}
	return app.serve(ctx, listen)
}

func (app *App) serve(ctx context.Context, listen net.Listener) error {
	defer app.close(ctx)

	srv := &http.Server{Handler: app.handler}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		errCh <- srv.Serve(listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (app *App) close(ctx context.Context) {
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "close store", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "close redis", "error", err)
		}
	}
}

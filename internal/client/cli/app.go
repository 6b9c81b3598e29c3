package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/omnidesk/internal/auth"
	"github.com/dmitrijs2005/omnidesk/internal/client/config"
	"github.com/dmitrijs2005/omnidesk/internal/events"
	"github.com/dmitrijs2005/omnidesk/internal/hooks"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/querycache"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/dmitrijs2005/omnidesk/internal/remote/rest"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/memory"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// App is one CLI invocation's wiring: session, cache, backend and the
// three entity tables.
type App struct {
	config  *config.Config
	out     io.Writer
	logger  logging.Logger
	session *auth.Session
	cache   *querycache.Cache
	metrics *prometheus.Registry
	origin  string

	store store.Store
	redis *redis.Client
	bus   events.Subscriber

	contacts  *hooks.Contacts
	templates *hooks.Templates
	deals     *hooks.Deals
}

// NewApp connects to the backend named by c, or opens the embedded store
// when c.ServerURL is empty. Records go to out, logs to logOut.
func NewApp(ctx context.Context, c *config.Config, out, logOut io.Writer) (*App, error) {
	logger := logging.NewText(logOut, c.Level())

	app := &App{
		config:  c,
		out:     out,
		logger:  logger,
		session: auth.NewSession(c.Token),
		metrics: prometheus.NewRegistry(),
		origin:  uuid.NewString(),
	}
	app.cache = querycache.New(
		querycache.WithLogger(logger),
		querycache.WithStaleTime(c.StaleTime),
		querycache.WithMetrics(querycache.NewMetrics(app.metrics)),
	)

	var client remote.TableClient
	if c.ServerURL != "" {
		client = rest.New(c.ServerURL, app.session, rest.WithOrigin(app.origin), rest.WithTimeout(c.RequestTimeout))
	} else {
		s, err := memory.New(memory.WithDataDir(c.DataDir), memory.WithLogger(logger))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open embedded store: %w", err)
		}
		app.store = s
		client = store.Local(s, app.session)
	}

	if c.RedisAddr != "" {
		rc, err := events.NewRedisClient(ctx, c.RedisAddr, "", 0)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = rc
		app.bus = events.NewRedisBus(rc, c.RedisChannel, logger)
	}

	d := hooks.Deps{Client: client, Auth: app.session, Cache: app.cache, Logger: logger}
	app.contacts = hooks.NewContacts(d)
	app.templates = hooks.NewTemplates(d)
	app.deals = hooks.NewDeals(d)

	return app, nil
}

// Close releases the cache, the embedded store and the Redis connection,
// then writes the cache counters if a metrics file is configured.
func (a *App) Close() {
	ctx := context.Background()
	a.logger.Debug(ctx, "closing query cache", "entries", a.cache.Len())
	a.cache.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error(ctx, "close store", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error(ctx, "close redis", "error", err)
		}
	}
	if a.config.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.config.MetricsFile, a.metrics); err != nil {
			a.logger.Error(ctx, "write metrics", "file", a.config.MetricsFile, "error", err)
		}
	}
}

// follow invalidates the cache on writes made by other processes until ctx
// is done. It is a no-op without Redis.
func (a *App) follow(ctx context.Context) {
	if a.bus == nil {
		return
	}
	go func() {
		if err := hooks.Follow(ctx, a.cache, a.bus, a.origin, a.logger); err != nil && ctx.Err() == nil {
			a.logger.Warn(ctx, "following remote writes stopped", "error", err)
		}
	}()
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

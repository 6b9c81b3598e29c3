package cli

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/client/config"
	"github.com/dmitrijs2005/omnidesk/internal/hooks"
	"github.com/spf13/cobra"
)

type flagValues struct {
	config    string
	server    string
	token     string
	secret    string
	dataDir   string
	redis     string
	staleTime time.Duration
	timeout   time.Duration
	logLevel  string
	metrics   string
}

// runner carries what the commands share: the resolved config, the app
// built from it and the output streams.
type runner struct {
	flags  flagValues
	cfg    *config.Config
	app    *App
	out    io.Writer
	errOut io.Writer
}

// loadConfig resolves the config file and environment, then applies the
// flags that were set explicitly.
func (r *runner) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(r.flags.config)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("server") {
		cfg.ServerURL = r.flags.server
	}
	if f.Changed("token") {
		cfg.Token = r.flags.token
	}
	if f.Changed("secret") {
		cfg.SecretKey = r.flags.secret
	}
	if f.Changed("data-dir") {
		cfg.DataDir = r.flags.dataDir
	}
	if f.Changed("redis") {
		cfg.RedisAddr = r.flags.redis
	}
	if f.Changed("stale-time") {
		cfg.StaleTime = r.flags.staleTime
	}
	if f.Changed("timeout") {
		cfg.RequestTimeout = r.flags.timeout
	}
	if f.Changed("log-level") {
		cfg.LogLevel = r.flags.logLevel
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = r.flags.metrics
	}

	r.cfg = cfg
	return nil
}

func (r *runner) open(cmd *cobra.Command, _ []string) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	app, err := NewApp(cmd.Context(), r.cfg, r.out, r.errOut)
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func newRootCommand(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:               "omnidesk",
		Short:             "Read and write omnidesk contacts, templates and deals",
		SilenceUsage:      true,
		PersistentPreRunE: r.open,
	}
	root.SetOut(r.out)
	root.SetErr(r.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&r.flags.config, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&r.flags.server, "server", "s", "", "table backend URL; empty uses the embedded store")
	pf.StringVarP(&r.flags.token, "token", "t", "", "bearer token")
	pf.StringVar(&r.flags.secret, "secret", "", "token signing secret")
	pf.StringVarP(&r.flags.dataDir, "data-dir", "f", "", "embedded store directory")
	pf.StringVarP(&r.flags.redis, "redis", "r", "", "redis address for remote write events")
	pf.DurationVar(&r.flags.staleTime, "stale-time", 0, "how long cached reads stay fresh")
	pf.DurationVar(&r.flags.timeout, "timeout", 0, "backend request timeout")
	pf.StringVar(&r.flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&r.flags.metrics, "metrics-file", "", "write query cache counters to this file on exit")

	root.AddCommand(
		newTokenCommand(r),
		newWhoamiCommand(r),
		entityCommand(r, "contacts", func(a *App) *hooks.Contacts { return a.contacts }),
		entityCommand(r, "templates", func(a *App) *hooks.Templates { return a.templates }),
		entityCommand(r, "deals", func(a *App) *hooks.Deals { return a.deals }),
	)
	return root
}

// Execute runs the CLI with args (without the program name).
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	r := &runner{out: out, errOut: errOut}
	root := newRootCommand(r)
	root.SetIn(in)
	root.SetArgs(args)

	defer func() {
		if r.app != nil {
			r.app.Close()
		}
	}()
	return root.ExecuteContext(ctx)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"transit-sync/internal/config"
	"transit-sync/internal/db"
	"transit-sync/internal/fetch"
	"transit-sync/internal/logging"
	"transit-sync/internal/memstore"
	"transit-sync/internal/metrics"
	"transit-sync/internal/providers"
	"transit-sync/internal/publisher"
	"transit-sync/internal/syncer"
	"transit-sync/internal/tracing"
	"transit-sync/internal/transit"
)

var version = "dev"

const usage = `usage: transit-sync [flags] <command> [command flags]

commands:
  migrate                          create missing tables
  providers -file providers.yml    seed data providers
  routes                           sync bus and trolleybus routes
  platforms [-type bus|trolleybus|all]
                                   sync platforms, stops and route points from 2GIS
  schedule [-type ...] [-interactive]
                                   match timetable stop headers against route stops
  all [-file providers.yml]        providers (if -file), routes, platforms, schedule

-dry-run starts from an empty in-memory repository with no providers, so only
"all -file providers.yml" has data to work on; nothing is written to a database.

flags:
`

type app struct {
	cfg     *config.Config
	repo    transit.Repository
	store   *db.Store // nil in dry-run
	syncer  *syncer.Syncer
	out     io.Writer
	in      io.Reader
	verbose bool
	log     *slog.Logger
	matcher syncer.AmbiguousMatchResolver
}

func main() {
	fs := flag.NewFlagSet("transit-sync", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "use an in-memory repository instead of the database")
	every := fs.Duration("every", 0, "repeat the command at this interval until interrupted")
	verbose := fs.Bool("v", false, "print parsed routes")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	cmd, args := fs.Arg(0), fs.Args()[1:]

	// Load configuration from .env and environment
	cfg, err := config.LoadFor(*dryRun)
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	log := logging.Init(cfg.LogLevel)

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		log.Error("tracing error", "err", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	a := &app{cfg: cfg, out: os.Stdout, in: os.Stdin, verbose: *verbose, log: log}
	run, err := a.command(cmd, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		os.Exit(2)
	}

	if *dryRun {
		a.repo = memstore.New()
		log.Info("dry run, using in-memory repository")
	} else {
		store, err := openStore(ctx, cfg)
		if err != nil {
			log.Error("database error", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		a.repo, a.store = store, store
	}

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector()
		srv := mcol.Serve(cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var events syncer.Events
	if cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, publisherMetrics(mcol))
		if err != nil {
			log.Error("nats error", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		events = pub
	}

	a.syncer = syncer.New(syncer.Options{
		Repo:             a.repo,
		Fetcher:          fetch.NewClient(fetch.Options{Timeout: cfg.HTTPTimeout, UserAgent: cfg.UserAgent}),
		APIKey:           cfg.TwoGISAPIKey,
		TimetableURLMask: cfg.TimetableURLMask,
		TimetableCoding:  cfg.TimetableCoding,
		Events:           events,
		Metrics:          syncMetrics(mcol),
		Matcher:          a.matcher,
		Logger:           log,
		Location:         cfg.Location,
	})

	if err := a.traced(ctx, cmd, run); err != nil {
		log.Error("command failed", "command", cmd, "err", err)
		if *every <= 0 {
			os.Exit(1)
		}
	}
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown complete")
			return
		case <-ticker.C:
		}
		if err := a.traced(ctx, cmd, run); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("command failed", "command", cmd, "err", err)
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*db.Store, error) {
	dsn := cfg.DatabaseURL
	if cfg.DBName != "" {
		var err error
		if dsn, err = db.WithDBName(dsn, cfg.DBName); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
	}
	store, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return store, nil
}

// command parses the command flags and returns the function that runs it.
func (a *app) command(name string, args []string) (func(context.Context) error, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	switch name {
	case "migrate":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return a.migrate, nil
	case "providers":
		file := fs.String("file", "providers.yml", "provider seed file")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return a.seedProviders(ctx, *file) }, nil
	case "routes":
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return a.syncRoutes, nil
	case "platforms":
		typ := fs.String("type", "all", "route type: bus, trolleybus or all")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		types, err := parseTypes(*typ)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return a.syncPlatforms(ctx, types) }, nil
	case "schedule":
		typ := fs.String("type", "all", "route type: bus, trolleybus or all")
		interactive := fs.Bool("interactive", false, "ask which stop an unmatched timetable header is")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		types, err := parseTypes(*typ)
		if err != nil {
			return nil, err
		}
		if *interactive {
			a.matcher = newPromptResolver(a.in, a.out)
		}
		return func(ctx context.Context) error { return a.syncSchedule(ctx, types) }, nil
	case "all":
		file := fs.String("file", "", "provider seed file applied first")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return a.all(ctx, *file) }, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func parseTypes(s string) ([]transit.RouteType, error) {
	if s == "" || s == "all" {
		return transit.RouteTypes, nil
	}
	t, err := transit.ParseRouteType(s)
	if err != nil {
		return nil, err
	}
	return []transit.RouteType{t}, nil
}

func (a *app) traced(ctx context.Context, name string, run func(context.Context) error) error {
	ctx, span := otel.Tracer("transit-sync").Start(ctx, "command."+name)
	defer span.End()
	span.SetAttributes(attribute.String("command", name))
	err := run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (a *app) migrate(ctx context.Context) error {
	if a.store == nil {
		fmt.Fprintln(a.out, "Migrate SKIPPED (dry run)")
		return nil
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Migrate %s schema DONE\n", a.store.Dialect())
	return nil
}

func (a *app) seedProviders(ctx context.Context, file string) error {
	seed, err := providers.Load(file)
	if err != nil {
		return err
	}
	st, err := providers.Apply(ctx, a.repo, seed)
	if err != nil {
		return err
	}
	printProviderStats(a.out, st)
	return nil
}

func (a *app) syncRoutes(ctx context.Context) error {
	stats, err := a.syncer.SyncRoutes(ctx)
	for _, st := range stats {
		printRouteStats(a.out, st, a.verbose)
	}
	return err
}

func (a *app) syncPlatforms(ctx context.Context, types []transit.RouteType) error {
	for _, t := range types {
		st, err := a.syncer.SyncPlatforms(ctx, t)
		printPlatformStats(a.out, st)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) syncSchedule(ctx context.Context, types []transit.RouteType) error {
	for _, t := range types {
		st, err := a.syncer.SyncWeekSchedule(ctx, t)
		printScheduleStats(a.out, st)
		if err != nil {
			return err
		}
		if st.Aborted() {
			return nil
		}
	}
	return nil
}

func (a *app) all(ctx context.Context, file string) error {
	if file != "" {
		if err := a.seedProviders(ctx, file); err != nil {
			return err
		}
	}
	if err := a.syncRoutes(ctx); err != nil {
		return err
	}
	if err := a.syncPlatforms(ctx, transit.RouteTypes); err != nil {
		return err
	}
	return a.syncSchedule(ctx, transit.RouteTypes)
}

func syncMetrics(c *metrics.Collector) syncer.Metrics {
	if c == nil {
		return nil
	}
	return c
}

func publisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return c
}

// Command notifications-worker runs the notification core against
// PostgreSQL. It applies the schema and accepts publish requests over NATS.
// Stored timers deliver deferred messages, a cron job purges old rows, and
// Prometheus metrics are served over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifycore/pkg/config"
	"github.com/dmitrymomot/notifycore/pkg/email"
	"github.com/dmitrymomot/notifycore/pkg/httpserver"
	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/mongo"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/notifications/assets"
	"github.com/dmitrymomot/notifycore/pkg/notifications/channels"
	"github.com/dmitrymomot/notifycore/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifycore/pkg/notifications/resolvers"
	"github.com/dmitrymomot/notifycore/pkg/pg"
	"github.com/dmitrymomot/notifycore/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifications worker stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg workerConfig
	if err := config.Load(&cfg, config.WithYAMLFile(os.Getenv("NOTIFICATIONS_CONFIG_FILE"))); err != nil {
		return err
	}

	log := logger.New(logger.WithEnvironment(cfg.Env, "notifications-worker"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg.PG, log); err != nil {
		return err
	}

	store := pgstore.New(pool,
		pgstore.WithArchive(cfg.Notifications.Purge.ArchiveEnabled),
		pgstore.WithMaxListSize(cfg.Notifications.MaxListSize),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := notifications.NewMetrics(reg)

	core := notifications.New(store,
		notifications.WithLogger(log),
		notifications.WithMetrics(metrics),
		notifications.WithConfig(cfg.Notifications),
	)

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	core.RegisterScopeResolver("course", resolvers.NewSQLResolver(sqlDB, cfg.CourseQuery, "course_id"), nil)

	if err := registerRenderers(ctx, core, cfg); err != nil {
		return err
	}

	healthchecks := map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)}

	if cfg.RedisURL != "" {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		core.RegisterScopeResolver("cohort", resolvers.NewRedisSetResolver(rdb, cfg.CohortKey,
			resolvers.WithScanCount(redisCfg.ScanCount)), nil)
		healthchecks["redis"] = redis.Healthcheck(rdb)
	}

	if cfg.MongoURL != "" {
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return err
		}
		db, err := mongo.Database(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer closeLogged(ctx, log, "mongo", db.Client().Disconnect)
		core.RegisterScopeResolver("team", resolvers.NewMongoResolver(db.Collection(cfg.TeamCollection), "user_id", "team_id"), nil)
		healthchecks["mongo"] = mongo.Healthcheck(db.Client())
	}

	if cfg.EmailEnabled {
		sender, err := email.NewSender(cfg.Email)
		if err != nil {
			return err
		}
		ch := channels.NewEmailChannel(core, channels.NewSQLAddressBook(sqlDB, cfg.AddressQuery), sender,
			channels.WithLogger(log), channels.WithMetrics(metrics))
		if err := core.RegisterChannel(ch); err != nil {
			return err
		}
	}

	purger, err := notifications.NewPurger(store, cfg.Notifications.Purge, notifications.WithPurgerLogger(log))
	if err != nil {
		return err
	}

	if cfg.NATSURL != "" {
		nc, err := channels.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer closeLogged(ctx, log, "nats", func(context.Context) error { return nc.Drain() })

		if err := core.RegisterChannel(channels.NewNATSChannel(nc, cfg.PushSubject,
			channels.WithLogger(log), channels.WithMetrics(metrics))); err != nil {
			return err
		}

		ing := &ingester{core: core, logger: log}
		sub, err := nc.QueueSubscribe(cfg.IngestSubject, "notifications-worker", ing.msgHandler(ctx))
		if err != nil {
			return errors.Join(channels.ErrConnect, err)
		}
		defer sub.Unsubscribe()
		log.InfoContext(ctx, "listening for publish requests", slog.String("subject", cfg.IngestSubject))
	}

	if _, err := core.LoadChannelPreferences(ctx); err != nil {
		return err
	}

	timers, err := notifications.NewTimerRunner(store, cfg.Notifications.Timers.Schedule, notifications.WithTimerLogger(log))
	if err != nil {
		return err
	}
	timers.Register(notifications.PublishTimerCallback, core.PublishCallback())
	timers.Register(notifications.PurgeTimerCallback, purger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return purger.Run(ctx) })
	g.Go(func() error { return timers.Run(ctx) })
	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	g.Go(func() error { return srv.Run(ctx, httpserver.NewRouter(reg, log, healthchecks)) })

	log.InfoContext(ctx, "notifications worker started",
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.Any("channels", core.Router().Names()),
	)
	return g.Wait()
}

// closeLogged runs closeFn with a context detached from cancellation and
// logs its error.
func closeLogged(ctx context.Context, log *slog.Logger, backend string, closeFn func(context.Context) error) {
	if err := closeFn(context.WithoutCancel(ctx)); err != nil {
		log.WarnContext(ctx, "closing backend failed", slog.String("backend", backend), logger.Error(err))
	}
}

func registerRenderers(ctx context.Context, core *notifications.Core, cfg workerConfig) error {
	if len(cfg.ClientTemplates) == 0 {
		return nil
	}

	var source notifications.AssetSource = notifications.FSAssetSource{FS: os.DirFS(cfg.TemplateDir)}
	if cfg.Assets.Bucket != "" {
		s3src, err := assets.NewS3Source(ctx, cfg.Assets)
		if err != nil {
			return err
		}
		source = s3src
	}

	for name, asset := range cfg.ClientTemplates {
		if err := core.RegisterRenderer(name, notifications.NewClientTemplateRenderer(source, asset)); err != nil {
			return err
		}
	}
	return nil
}

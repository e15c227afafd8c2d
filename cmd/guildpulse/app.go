package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"guildpulse/internal/announce"
	"guildpulse/internal/clients"
	"guildpulse/internal/clock"
	"guildpulse/internal/config"
	"guildpulse/internal/events"
	"guildpulse/internal/journal"
	"guildpulse/internal/ledger"
	"guildpulse/internal/lifecycle"
	"guildpulse/internal/memstore"
	"guildpulse/internal/metrics"
	"guildpulse/internal/migrations"
	"guildpulse/internal/raid"
	"guildpulse/internal/xp"
)

// app holds the wired services for one process.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *sql.DB
	registry *prometheus.Registry

	events    events.Service
	eventHTTP *events.Handler
	manager   *lifecycle.Manager
	raid      raid.Service
	booster   *xp.Booster
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)
	clk := clock.New()

	var (
		store events.Store
		slots ledger.Ledger
		repo  raid.Repository
		audit journal.Journal
	)
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memstore.New()
		store, slots, repo, audit = mem, mem, mem, mem
		log.Warn("using in-memory storage; state is lost on restart")
	default:
		db, err := openDB(ctx, cfg.DatabaseURL, cfg.DBTimeout)
		if err != nil {
			return nil, err
		}
		a.db = db
		store = events.NewPostgresStore(db)
		slots = ledger.NewPostgresLedger(db)
		repo = raid.NewPostgresRepository(db)
		audit = journal.NewStore(db)
	}

	window, err := cfg.Weekend.Window()
	if err != nil {
		return nil, err
	}
	a.events = events.NewService(store, audit, clk, window, log)
	a.eventHTTP = events.NewHandler(a.events, audit, cfg.Weekend.DefaultMultiplier)

	interval, err := cfg.Schedule.Interval()
	if err != nil {
		return nil, err
	}
	a.manager, err = lifecycle.NewManager(lifecycle.Params{
		Events:    store,
		Ledger:    slots,
		Announcer: newAnnouncer(cfg.Announce, log),
		Journal:   audit,
		Clock:     clk,
		Config: lifecycle.Config{
			TickInterval:      interval,
			ReminderPeriod:    cfg.Schedule.ReminderPeriod,
			ReminderTolerance: cfg.Schedule.ReminderTolerance,
			Destinations: map[events.Kind]string{
				events.KindDoubleXP: cfg.Announce.DoubleXPChannel,
				events.KindRaid:     cfg.Announce.RaidChannel,
			},
		},
		Metrics: m,
		Log:     log,
	})
	if err != nil {
		return nil, err
	}

	var resolver raid.FactionResolver = raid.StaticResolver(cfg.Raid.StaticFactions)
	if cfg.Raid.RosterURL != "" {
		resolver = clients.NewRosterClient(cfg.Raid.RosterURL, cfg.Raid.RosterTimeout)
	}
	a.raid = raid.NewService(repo, store, resolver, audit, clk, raid.Config{
		Factions: cfg.Raid.Factions,
		Scorer:   raid.Scorer(cfg.Raid.CategoryWeights),
	}, m, log)
	a.booster = xp.NewBooster(store, clk)

	return a, nil
}

func newAnnouncer(cfg config.AnnounceConfig, log *zap.Logger) lifecycle.Announcer {
	if len(cfg.Webhooks) == 0 {
		return announce.NewLog(log)
	}
	return announce.NewWebhook(cfg.Webhooks, cfg.RatePerMinute, cfg.Timeout, log)
}

func (a *app) migrate() error {
	if a.db == nil {
		return nil
	}
	return migrations.Up(a.db)
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// openDB connects and bounds every statement with timeout through the
// server-side statement_timeout setting.
func openDB(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", withStatementTimeout(dsn, timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func withStatementTimeout(dsn string, timeout time.Duration) string {
	if timeout <= 0 {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// key=value form
		return fmt.Sprintf("%s statement_timeout=%d", dsn, timeout.Milliseconds())
	}
	q := u.Query()
	if q.Get("statement_timeout") == "" {
		q.Set("statement_timeout", strconv.FormatInt(timeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

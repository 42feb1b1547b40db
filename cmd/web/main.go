// cmd/web/main.go
//
// Safari API – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console logger, then config (.env → conf/app.yaml → SAFARI_ env →
//     platform variables → Vault references).
//
//  2. Daily rotating file logger (tees to console when running in a TTY).
//
//  3. Entity schemas and, when a DSN is configured, the Postgres pool.
//     Without a DSN the API runs in degraded mode: public reads answer
//     with empty lists and `degraded: true`, admin paths answer 503.
//
//  4. Shared services: store, public reader, binder, auth, notifier, rate
//     limiters, and the optional GeoLite2 reader.
//
//  5. Component Init, then migrations, then the root router.
//
//  6. Serve until SIGINT or SIGTERM, then drain for ShutdownGrace.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/components/content"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/auth"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/component"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/config"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/database"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/logger"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/middleware"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/notify"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/requestinfo"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/server"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/session"

	_ "github.com/SeanMdegy2025/gotzwebapp-sub000/components/auth"
	_ "github.com/SeanMdegy2025/gotzwebapp-sub000/components/enquiry"
	_ "github.com/SeanMdegy2025/gotzwebapp-sub000/components/health"
	_ "github.com/SeanMdegy2025/gotzwebapp-sub000/components/site"
)

// sessionGrace keeps expired or revoked session rows around for a while
// so support can still see recent logins.
const sessionGrace = 7 * 24 * time.Hour

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatalw("load config", "err", err)
	}

	log, err := logger.New(cfg.Log.Dir, runningInTTY(), cfg.Log.Level)
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	//
	// ── 1.  Schemas and database ────────────────────────────────────────
	//
	reg, err := content.LoadRegistry()
	if err != nil {
		return err
	}

	var db *sqlx.DB
	if cfg.Database.Enabled() {
		opts := database.DefaultOptions()
		opts.MaxOpen = cfg.Database.MaxOpen
		opts.MaxIdle = cfg.Database.MaxIdle
		opts.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		opts.Retries = cfg.Database.ConnectRetries

		db, err = database.OpenWithOptions(ctx, cfg.Database.URL, opts)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Infow("database online", "max_open", opts.MaxOpen)
	} else {
		log.Warnw("no database configured; serving fallback content")
	}

	//
	// ── 2.  Shared services ─────────────────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		log.Warnw("geoip disabled", "err", err)
	}
	defer func() { _ = requestinfo.CloseGeo() }()

	store := resource.NewStore(db)
	sessions := session.NewStore(db)
	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}

	env := component.Env{
		Config:    cfg,
		Resources: reg,
		Store:     store,
		Public:    resource.NewPublicReader(store, cfg.HTTP.WriteTimeout),
		Binder: resource.Binder{
			MaxImageBytes: cfg.Content.MaxImageBytes,
			HashPassword:  auth.HashPassword,
		},
		Auth: &auth.Service{
			Users:    auth.NewUsers(db),
			Sessions: sessions,
			Issuer:   auth.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		},
		Notifier: notifiers,
		Limits: component.Limits{
			Login:  middleware.NewLimiter("login", cfg.RateLimit.LoginPerMinute),
			Submit: middleware.NewLimiter("submit", cfg.RateLimit.SubmitPerMinute),
		},
		Logger: log,
	}

	//
	// ── 3.  Components and migrations ───────────────────────────────────
	//
	comps := component.All()
	var ddl []string
	for _, c := range comps {
		if err := c.Init(env); err != nil {
			return err
		}
		ddl = append(ddl, c.Migrations()...)
		log.Debugw("component ready", "name", c.Name())
	}

	if db != nil {
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db, ddl); err != nil {
				return err
			}
		}
		if n, err := sessions.Purge(ctx, sessionGrace); err != nil {
			log.Warnw("session purge failed", "err", err)
		} else if n > 0 {
			log.Infow("sessions purged", "count", n)
		}
	}

	//
	// ── 4.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, server.Router(cfg, comps))
	return server.Run(ctx, srv)
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/trestleapp/trestle/migrations"
	"github.com/trestleapp/trestle/modules/account"
	"github.com/trestleapp/trestle/pkg/clientip"
	"github.com/trestleapp/trestle/pkg/config"
	"github.com/trestleapp/trestle/pkg/cookie"
	"github.com/trestleapp/trestle/pkg/cron"
	"github.com/trestleapp/trestle/pkg/email"
	"github.com/trestleapp/trestle/pkg/environment"
	"github.com/trestleapp/trestle/pkg/httpserver"
	"github.com/trestleapp/trestle/pkg/logger"
	"github.com/trestleapp/trestle/pkg/pg"
	"github.com/trestleapp/trestle/pkg/queue"
	"github.com/trestleapp/trestle/pkg/ratelimit"
	redisconn "github.com/trestleapp/trestle/pkg/redis"
	"github.com/trestleapp/trestle/pkg/requestid"
	"github.com/trestleapp/trestle/pkg/session"
)

type appConfig struct {
	Environment environment.Environment `env:"ENVIRONMENT" envDefault:"development"`
	ServiceName string                  `env:"SERVICE_NAME" envDefault:"trestle"`

	// RateLimitBackend selects the login limiter store: "redis" shares
	// counters across processes, "memory" keeps them process-local.
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`

	HTTP    httpserver.Config
	PG      pg.Config
	Redis   redisconn.Config
	Cookie  cookie.Config
	Session session.Config
	Email   email.Config
	Account account.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, cfg.PG, log); err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}
	sessions := session.New(cookies, cfg.Session)

	sender, err := email.New(cfg.Email)
	if err != nil {
		return err
	}

	// Background email delivery.
	q := queue.NewQueue()
	consumer := queue.NewConsumer(q,
		queue.WithLogger(log),
		queue.WithDBScope(pg.TaskScope(pool)),
	)
	if err := consumer.RegisterHandlers(account.NewEmailTaskHandler(sender)); err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	defer consumer.Stop()

	storage := account.NewPgStorage(pool)
	identity := account.NewIdentity(storage, cfg.Account.IdentityCacheSize)
	svc := account.NewService(storage, identity, q, cfg.Account, account.WithLogger(log))

	limiter, err := loginLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	mw := account.NewMiddleware(svc, cookies, renderer, cfg.Account, log)
	handlers := account.NewHandlers(svc, mw, cookies, renderer, cfg.Account, log,
		account.WithLoginLimiter(limiter))

	// Stale auth records are swept once a day.
	jobs := cron.NewRunner(cron.WithLogger(log))
	if err := jobs.Add("auth-sweeper", cron.DailyAt(8, 0), svc.SweepJob()); err != nil {
		return err
	}
	if err := jobs.Start(ctx); err != nil {
		return err
	}
	defer jobs.Stop()

	site := account.Router(account.RouterOptions{Account: handlers, Middleware: mw})
	site.Get("/", page(renderer, "home/index"))
	site.With(mw.RequireUser).Get("/home", page(renderer, "home/dashboard"))

	root := chi.NewRouter()
	root.Use(requestid.Middleware)
	root.Use(clientip.Middleware)
	root.Use(sessions.Middleware)
	root.Get("/healthz", httpserver.HealthCheckHandler(log, pg.Healthcheck(pool)))
	root.Mount("/", site)

	return httpserver.New(cfg.HTTP, log).Run(ctx, root)
}

// loginLimiter builds the brute-force limiter for login and
// forgot-password posts, keyed by client IP.
func loginLimiter(ctx context.Context, cfg appConfig, log *slog.Logger) (*ratelimit.FixedWindow, error) {
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimitBackend == "redis" {
		client, err := redisconn.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store = ratelimit.NewRedisStore(client)
		log.Info("login rate limiter backed by redis")
	}
	return ratelimit.NewFixedWindow(store, "login",
		cfg.Account.LoginRateLimit, cfg.Account.LoginRateWindow)
}

// page renders a bare template with the session flash and the current
// user merged in; the account module handles its own pages.
func page(renderer account.Renderer, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := make(map[string]any)
		if sess := session.FromContext(r.Context()); sess != nil {
			if flash, ok := sess.PopFlash(); ok {
				data["flash"] = flash
			}
		}
		if p := account.PrincipalFromContext(r.Context()); p != nil {
			data["user"] = p.User
			data["is_admin"] = p.User.IsAdmin
			data["is_dev"] = p.User.IsDev
		}
		if err := renderer.Render(w, http.StatusOK, name, data); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wichananm65/blossom-storefront/internal/backend"
	"github.com/wichananm65/blossom-storefront/internal/cart"
	"github.com/wichananm65/blossom-storefront/internal/config"
	"github.com/wichananm65/blossom-storefront/internal/logging"
	"github.com/wichananm65/blossom-storefront/internal/metrics"
	"github.com/wichananm65/blossom-storefront/internal/newsletter"
	"github.com/wichananm65/blossom-storefront/internal/notify"
	"github.com/wichananm65/blossom-storefront/internal/order"
	"github.com/wichananm65/blossom-storefront/internal/payment"
	"github.com/wichananm65/blossom-storefront/internal/product"
	"github.com/wichananm65/blossom-storefront/internal/session"
	"github.com/wichananm65/blossom-storefront/internal/storage"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.NeedsDatabase() {
		db = mustOpenDB(logger, cfg.Database.URL)
		defer db.Close()
	}

	catalogRepo := mustCatalog(logger, cfg, db)
	kv, closeKV := mustStorage(ctx, logger, cfg, db)
	defer closeKV()

	m := metrics.New()

	// carts
	sessions := cart.NewSessions(kv, logging.New("cart"),
		cart.WithSharedNotifier(notify.NewLogNotifier(logging.New("notify"))),
		cart.WithActionObserver(func(a cart.Action) { m.CartAction(a.Name()) }),
	)
	m.Gauge("blossom_open_carts", "Carts currently held in memory", func() float64 { return float64(sessions.Len()) })
	go sessions.RunJanitor(ctx, time.Minute, cfg.Storage.CartIdle)

	issuer, err := session.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		fatal(logger, "session issuer", err)
	}

	productService := product.NewService(catalogRepo)

	// payments and checkout
	paymentAPI := backend.New("payments", cfg.Payment.BaseURL, cfg.Payment.Timeout, backend.WithLogger(logging.New("backend")))
	payments := payment.NewClient(paymentAPI)

	var orderRepo order.Repository = order.NewInMemoryRepository()
	if db != nil {
		pg := order.NewPostgresRepository(db)
		if err := pg.EnsureSchema(); err != nil {
			fatal(logger, "orders schema", err)
		}
		orderRepo = pg
	}
	orderService := order.NewService(orderRepo, payments,
		order.WithCallbackURL(cfg.Payment.CallbackURL),
		order.WithLogger(logging.New("order")),
		order.WithCartClearer(func(sessionID string) {
			if err := sessions.ClearCart(context.Background(), sessionID); err != nil {
				logger.Error("clear paid cart", "session", sessionID, "error", err)
			}
		}),
	)

	paymentHandler := payment.NewHandler(payments, payment.ViewConfig{
		Dashboard:     cfg.Payment.DashboardPath,
		RedirectDelay: cfg.Payment.RedirectDelay,
		Timeout:       cfg.Payment.Timeout,
	}, logging.New("payment"),
		payment.WithNotifier(notify.NewLogNotifier(logging.New("notify"))),
		payment.WithSettleHook(func(cb payment.Callback, o payment.Outcome) {
			m.PaymentSettled(string(o.Provider), string(o.Status))
			orderService.Settle(cb, o)
		}),
	)

	newsletterAPI := backend.New("newsletter", cfg.Newsletter.BaseURL, cfg.Payment.Timeout, backend.WithLogger(logging.New("backend")))
	newsletterService := newsletter.NewService(newsletter.NewClient(newsletterAPI), newsletter.WithObserver(m.Subscription))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	app.Use(logging.Middleware(logger))
	app.Use(recover.New())
	app.Use(m.Middleware())
	setupCORS(app, cfg.App.AllowOrigins)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })
	m.RegisterPublicRoutes(app)

	sessionHandler := session.NewHandler(issuer)
	sessionHandler.RegisterPublicRoutes(app)
	product.NewHandler(productService).RegisterPublicRoutes(app)
	paymentHandler.RegisterPublicRoutes(app)
	newsletter.NewHandler(newsletterService).RegisterPublicRoutes(app)

	app.Use(issuer.Middleware())

	sessionHandler.RegisterProtectedRoutes(app)
	cart.NewHandler(sessions, productService).RegisterProtectedRoutes(app)
	order.NewHandler(orderService, sessions).RegisterProtectedRoutes(app)

	go func() {
		logger.Info("listening", "addr", cfg.App.HTTPAddr, "storage", cfg.Storage.Driver, "catalog", cfg.Catalog.Driver)
		if err := app.Listen(cfg.App.HTTPAddr); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", "error", err)
	}
	sessions.CloseAll()
}

func configPath() string {
	if p := os.Getenv("BLOSSOM_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func fatal(logger *slog.Logger, what string, err error) {
	logger.Error(what+" failed", "error", err)
	os.Exit(1)
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func mustOpenDB(logger *slog.Logger, dbURL string) *sql.DB {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		fatal(logger, "open database", err)
	}
	if err := db.Ping(); err != nil {
		fatal(logger, "ping database", err)
	}
	return db
}

func mustCatalog(logger *slog.Logger, cfg config.Config, db *sql.DB) product.Repository {
	if cfg.Catalog.Driver != "postgres" {
		return product.NewInMemoryRepository(product.DefaultCatalog())
	}
	repo := product.NewPostgresRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		fatal(logger, "products schema", err)
	}
	n, err := repo.SeedIfEmpty(product.DefaultCatalog())
	if err != nil {
		fatal(logger, "seed products", err)
	}
	if n > 0 {
		logger.Info("seeded catalog", "products", n)
	}
	return repo
}

func mustStorage(ctx context.Context, logger *slog.Logger, cfg config.Config, db *sql.DB) (storage.Store, func()) {
	noop := func() {}
	switch cfg.Storage.Driver {
	case "file":
		fs, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			fatal(logger, "file storage", err)
		}
		return fs, noop
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			fatal(logger, "redis ping", err)
		}
		return storage.NewRedisStore(client), func() { _ = client.Close() }
	case "postgres":
		pg := storage.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			fatal(logger, "kv schema", err)
		}
		return pg, noop
	default:
		return storage.NewMemoryStore(), noop
	}
}

package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glowbook/glowbook/internal/auth"
	"github.com/glowbook/glowbook/internal/booking"
	"github.com/glowbook/glowbook/internal/catalog"
	"github.com/glowbook/glowbook/internal/config"
	"github.com/glowbook/glowbook/internal/dispute"
	"github.com/glowbook/glowbook/internal/escrow"
	"github.com/glowbook/glowbook/internal/funding"
	"github.com/glowbook/glowbook/internal/identity"
	"github.com/glowbook/glowbook/internal/ledger"
	"github.com/glowbook/glowbook/internal/middleware"
	"github.com/glowbook/glowbook/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Gateway overrides the payment gateway; nil selects the simulator.
	Gateway funding.Gateway
}

// Wired exposes the backends Setup constructed, so the process can run
// background workers against the same state the API serves.
type Wired struct {
	Ledger   ledger.Ledger
	Gateway  funding.Gateway
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes. Backends are
// Postgres/Redis when available and in-memory otherwise; outside of dev
// the infrastructure is mandatory.
func Setup(app *fiber.App, d Deps) (Wired, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Wired{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Wired{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Backends: Postgres when a pool is present, in-memory otherwise.
	var (
		ledgerBackend ledger.Ledger
		bookingRepo   booking.Repository
		catalogRepo   catalog.Repository
		identityRepo  identity.Repository
		coordinator   escrow.Coordinator
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB, d.Cfg.Currency)
		bookingRepo = booking.NewPostgresRepository(d.DB)
		catalogRepo = catalog.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		coordinator = escrow.NewPostgresCoordinator(d.DB, bookingRepo, d.Cfg.Currency)
	} else {
		ledgerBackend = ledger.NewInMemory(d.Cfg.Currency)
		bookingRepo = booking.NewMemoryRepository()
		catalogRepo = catalog.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		coordinator = escrow.NewMemoryCoordinator(ledgerBackend, bookingRepo)
	}

	gateway := d.Gateway
	if gateway == nil {
		gateway = funding.StaticGateway{}
	}
	notifier := notification.NewLoggerNotifier(d.Logger)

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	catalogSvc := catalog.NewService(catalogRepo)
	bookingSvc := booking.NewService(bookingRepo, catalogSvc)
	fundingSvc := funding.NewService(ledgerBackend, gateway)
	resolver := dispute.NewResolver(bookingRepo, coordinator, notifier)

	provision := func(ctx context.Context, userID string) error {
		_, err := ledgerBackend.EnsureWallet(ctx, userID)
		return err
	}
	authHandler := auth.NewHandler(identitySvc, authSvc, provision)
	walletHandler := ledger.NewHandler(ledgerBackend)
	catalogHandler := catalog.NewHandler(catalogSvc, identitySvc)
	bookingHandler := NewBookingHandler(bookingSvc, coordinator, identitySvc, notifier)
	fundingHandler := funding.NewHandler(fundingSvc)
	disputeHandler := dispute.NewHandler(resolver, identitySvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	RegisterCatalogPublicRoutes(api, catalogHandler)

	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"phone":      user.Phone,
			"role":       user.Role,
			"created_at": user.CreatedAt,
			"last_login": user.LastLogin,
		})
	})

	RegisterWalletRoutes(protected, walletHandler, fundingHandler)
	RegisterCatalogRoutes(protected, catalogHandler)
	RegisterBookingRoutes(protected, bookingHandler)
	RegisterAdminRoutes(protected, disputeHandler)

	return Wired{Ledger: ledgerBackend, Gateway: gateway, Notifier: notifier}, nil
}

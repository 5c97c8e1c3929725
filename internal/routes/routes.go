package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/trailhead-app/trailhead/internal/config"
	"github.com/trailhead-app/trailhead/internal/identity"
	"github.com/trailhead-app/trailhead/internal/middleware"
	"github.com/trailhead-app/trailhead/internal/notification"
	"github.com/trailhead-app/trailhead/internal/password"
	"github.com/trailhead-app/trailhead/internal/review"
	"github.com/trailhead-app/trailhead/internal/token"
	"github.com/trailhead-app/trailhead/internal/tour"
)

// Deps aggregates shared dependencies required to wire routes. DB and
// Cache may be nil in development mode; repositories then fall back to
// memory and rate limiting becomes a no-op.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	tokens := token.NewService(d.Cfg.JWT.Secret, d.Cfg.JWT.TTL)
	hasher := password.NewHasher(d.Cfg.BcryptCost)

	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(users, hasher, tokens, d.Cfg.Reset.TokenTTL)

	var notifier notification.Notifier
	if d.Cfg.SMTP.Host != "" {
		notifier = notification.NewMailer(
			d.Cfg.SMTP.Host, d.Cfg.SMTP.Port,
			d.Cfg.SMTP.Username, d.Cfg.SMTP.Password, d.Cfg.SMTP.From)
	} else {
		notifier = notification.NewLogNotifier(d.Logger)
	}
	identityHandler := identity.NewHandler(identitySvc, notifier, d.Cfg.Reset.URL)

	var tours tour.Repository
	if d.DB != nil {
		tours = tour.NewPostgresRepository(d.DB)
	} else {
		tours = tour.NewMemoryRepository()
	}
	tourHandler := tour.NewHandler(tour.NewService(tours))

	var reviews review.Repository
	if d.DB != nil {
		reviews = review.NewPostgresRepository(d.DB)
	} else {
		reviews = review.NewMemoryRepository()
	}
	reviewHandler := review.NewHandler(review.NewService(reviews, tours))

	api := app.Group("/api/v1")

	authGate := middleware.RequireAuth(tokens, users)
	credentialLimiter := middleware.EmailRateLimit(d.Cache, 5, "credentials")
	RegisterUserRoutes(api, identityHandler, authGate, credentialLimiter)
	RegisterTourRoutes(api, tourHandler, authGate)
	RegisterReviewRoutes(api, reviewHandler, authGate)

	return nil
}

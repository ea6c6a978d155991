package router

import (
	"fmt"

	"github.com/anonto42/volunteer-hub/backend/internal/handlers"
	"github.com/anonto42/volunteer-hub/backend/internal/middleware"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/realtime"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/services"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators SetupRoutes wires into repositories, services
// and handlers. Mongo, Redis, Reports, Notifier and Subscriber may be nil.
type Deps struct {
	SQL        *gorm.DB
	Mongo      *mongo.Client
	Redis      *redis.Client
	Outbox     *notify.Outbox
	Reports    repositories.DeliveryReportRepository
	Notifier   realtime.Notifier
	Subscriber realtime.Subscriber
	Auth       echo.MiddlewareFunc

	VAPIDPublicKey     string
	TrendingWindowDays int
	Logger             *zap.Logger
}

// Services are returned so background jobs can share them with the HTTP
// layer.
type Services struct {
	Events        *services.EventService
	Registrations *services.RegistrationService
	Likes         *services.LikeService
	Push          *services.PushService
}

// AuthMiddleware picks the identity middleware for the configured provider.
func AuthMiddleware(provider, jwtSecret string, verifier middleware.IDTokenVerifier, users repositories.UserRepository, logger *zap.Logger) (echo.MiddlewareFunc, error) {
	switch provider {
	case "jwt":
		return middleware.JWTAuthMiddleware(jwtSecret), nil
	case "firebase":
		if verifier == nil {
			return nil, fmt.Errorf("firebase auth selected but no firebase client is available")
		}
		return middleware.FirebaseAuthMiddleware(verifier, users, logger), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", provider)
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) *Services {
	logger := deps.Logger.Named("router")
	db := deps.SQL

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db)
	eventRepo := repositories.NewPostgresEventRepository(db)
	registrationRepo := repositories.NewPostgresRegistrationRepository(db)
	channelRepo := repositories.NewPostgresChannelRepository(db)
	likeRepo := repositories.NewPostgresLikeRepository(db)
	postRepo := repositories.NewPostgresPostRepository(db)
	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	subscriptionRepo := repositories.NewPostgresPushSubscriptionRepository(db)

	// --- Services ---
	svc := &Services{
		Events:        services.NewEventService(db, eventRepo, channelRepo, likeRepo, userRepo, deps.Outbox, deps.Logger),
		Registrations: services.NewRegistrationService(db, eventRepo, registrationRepo, userRepo, deps.Outbox, deps.Logger),
		Likes:         services.NewLikeService(db, likeRepo, deps.Logger),
		Push:          services.NewPushService(subscriptionRepo, deps.VAPIDPublicKey, deps.Logger),
	}

	// Health check - always accessible
	health := handlers.NewHealthHandler(db, deps.Mongo, deps.Redis)
	e.GET("/health", health.HealthCheck)

	pushHandler := handlers.NewPushHandler(svc.Push)

	public := e.Group("/api/v1")
	pushHandler.RegisterPublicPushRoutes(public)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(deps.Auth)

	handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
	handlers.NewEventHandler(svc.Events, deps.TrendingWindowDays).RegisterEventRoutes(api)
	handlers.NewRegistrationHandler(svc.Registrations).RegisterRegistrationRoutes(api)
	handlers.NewLikeHandler(svc.Likes).RegisterLikeRoutes(api)
	handlers.NewPostHandler(postRepo, eventRepo).RegisterPostRoutes(api)
	handlers.NewNotificationHandler(notificationRepo, userRepo, deps.Notifier, deps.Subscriber, deps.Logger).RegisterNotificationRoutes(api)
	pushHandler.RegisterPushRoutes(api)

	admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	handlers.NewAdminHandler(svc.Events, deps.Reports).RegisterAdminRoutes(admin)

	logger.Info("routes configured", zap.Int("count", len(e.Routes())))
	return svc
}

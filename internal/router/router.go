package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anonto42/studyhub/backend/internal/handlers"
	"github.com/anonto42/studyhub/backend/internal/middleware"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/relay"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/pkg/config"
	"github.com/anonto42/studyhub/backend/pkg/firebase"
	"github.com/anonto42/studyhub/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Deps are the process-wide resources routes are built from.
type Deps struct {
	Config   *config.Config
	DB       *config.DB
	Firebase *firebase.App
	Hub      *relay.Hub
	Metrics  *metrics.Metrics
}

// SetupRoutes migrates the relational schema, builds repositories and
// services, and registers every route.
func SetupRoutes(e *echo.Echo, d Deps) error {
	pgdb := d.DB.Postgres
	if err := pgdb.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.Like{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	slog.Info("PostgreSQL auto-migrations completed")

	mdb := d.DB.Mongo.Database(d.Config.MongoDatabase)

	// --- Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	conversationRepo := repositories.NewMongoConversationRepository(mdb)
	messageRepo := repositories.NewMongoMessageRepository(mdb)
	ledgerRepo := repositories.NewMongoReputationRepository(mdb)
	statsRepo := repositories.NewMongoStatsRepository(mdb)
	sessionRepo := repositories.NewMongoSessionRepository(mdb)
	likeTargets := repositories.NewLikeTargets(mdb)
	tx := repositories.NewMongoTxRunner(d.DB.Mongo, d.Config.TxTimeout)

	// --- Services ---
	notificationSvc := services.NewNotificationService(notificationRepo)
	readStateSvc := services.NewReadStateService(conversationRepo, messageRepo, tx, d.Metrics)
	messagingSvc := services.NewMessagingService(conversationRepo, messageRepo, tx, d.Hub)
	d.Hub.SetAuthorizer(messagingSvc.CanJoinRoom)
	reputationSvc := services.NewReputationService(ledgerRepo, statsRepo, tx, d.Metrics)
	studySvc := services.NewStudyService(statsRepo, sessionRepo, reputationSvc, notificationSvc)
	likeSvc := services.NewLikeService(likeRepo, likeTargets, notificationSvc)

	// Health check - always accessible
	health := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"mongo": handlers.PingFunc(func(ctx context.Context) error {
			return d.DB.Mongo.Ping(ctx, readpref.Primary())
		}),
		"postgres": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := pgdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	})
	e.GET("/health", health.HealthCheck)

	// --- Unprotected routes for authentication ---
	var verifier handlers.IDTokenVerifier
	var resolver *middleware.FirebaseResolver
	if client := d.Firebase.Auth(); client != nil {
		verifier = client
		resolver = middleware.NewFirebaseResolver(client, userRepo)
	}
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(userRepo, verifier, d.Config.JWTSecret).RegisterAuthRoutes(authGroup)

	auth := middleware.Authenticate(d.Config.JWTSecret, resolver)

	// --- Websocket relay; the token travels as ?token= ---
	wsServer := relay.NewServer(d.Hub, relay.Options{
		AllowedOrigins: d.Config.WSAllowedOrigins,
		SendBuffer:     d.Config.WSSendBuffer,
	})
	handlers.NewWSHandler(wsServer).RegisterWSRoutes(e.Group("", auth))

	// --- Protected routes ---
	api := e.Group("/api/v1", auth)
	handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
	handlers.NewReadStateHandler(readStateSvc).RegisterReadStateRoutes(api)
	handlers.NewConversationHandler(messagingSvc).RegisterConversationRoutes(api)
	handlers.NewReputationHandler(reputationSvc).RegisterReputationRoutes(api)
	handlers.NewStudyHandler(studySvc, reputationSvc).RegisterStudyRoutes(api)
	handlers.NewLikeHandler(likeSvc).RegisterLikeRoutes(api)
	handlers.NewNotificationHandler(notificationSvc).RegisterNotificationRoutes(api)

	slog.Info("all routes configured")
	return nil
}

package di

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"venues-server/auth"
	"venues-server/config"
	"venues-server/dao/breaker"
	mongodao "venues-server/dao/mongo"
	redisdao "venues-server/dao/redis"
	"venues-server/db"
	"venues-server/query"
	"venues-server/server"
	"venues-server/server/handlers"
	services "venues-server/service"
	"venues-server/supervisor"
)

// Container holds all application dependencies.
type Container struct {
	Config                     *config.Config
	VenueRepository            services.VenueRepository
	QueryEngine                *query.Engine
	VenueService               *services.VenueService
	VenueStatsRefresherService *services.VenueStatsRefresherService
	JWTManager                 *auth.JWTManager
	AdminAuthenticator         *auth.AdminAuthenticator
	Responder                  *handlers.Responder
	VenueHandler               *handlers.VenueHandler
	AdminHandler               *handlers.AdminHandler
	HealthHandler              *handlers.HealthHandler
	MuxRouter                  *mux.Router
	Router                     *server.Router
	VenuesHttpServer           *server.VenuesHttpServer
	Supervisor                 *supervisor.Tree

	closers []func(context.Context) error
}

// NewContainer connects the configured store backend and wires up all
// dependencies on top of it.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	log.Info().
		Str("env", cfg.Server.Environment).
		Str("backend", cfg.Store.Backend).
		Msg("Initializing container")

	var (
		repo    services.VenueRepository
		closers []func(context.Context) error
	)

	switch cfg.Store.Backend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()

		client, err := db.NewMongoClient(connectCtx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		closers = append(closers, client.Disconnect)

		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		if cfg.Mongo.EnsureIndexes {
			if err := db.EnsureVenueIndexes(connectCtx, coll); err != nil {
				return nil, err
			}
		}
		repo = mongodao.NewMongoVenueDAO(coll)

	case config.BackendRedis:
		redisInternalClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func(context.Context) error { return redisInternalClient.Close() })

		redisClient, err := db.NewGeoRedisClient(ctx, redisInternalClient)
		if err != nil {
			_ = redisInternalClient.Close()
			return nil, err
		}
		repo = redisdao.NewRedisVenueDAO(redisClient)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	c, err := Build(cfg, repo)
	if err != nil {
		return nil, err
	}
	c.closers = closers
	return c, nil
}

// Build wires everything above the store. Tests call it with an in-memory
// repository.
func Build(cfg *config.Config, repo services.VenueRepository) (*Container, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if cfg.Store.Breaker.Enabled {
		repo = breaker.NewBreakerVenueRepository(repo, cfg.Store.Backend, cfg.Store.Breaker)
	}

	engine := query.NewEngine(repo,
		query.WithLimits(query.Limits{
			DefaultLimit:  cfg.Query.DefaultLimit,
			MaxLimit:      cfg.Query.MaxLimit,
			DefaultRadius: cfg.Query.DefaultRadius,
			MaxRadius:     cfg.Query.MaxRadius,
		}),
		query.WithLocation(loc),
		query.WithTimeout(cfg.Server.RequestTimeout),
	)

	refresher := services.NewVenueStatsRefresherService(repo, cfg.Stats.RecentWindow, cfg.Stats.RefreshInterval)
	venueService := services.NewVenueService(repo, engine, refresher)

	security := cfg.Security
	if strings.TrimSpace(security.JWTSecret) == "" {
		// Tokens issued with this secret do not survive a restart.
		security.JWTSecret = uuid.NewString() + uuid.NewString()
		log.Warn().Msg("security.jwt_secret is not set; using an ephemeral signing secret")
	}
	if security.AdminPasswordHash == "" {
		log.Warn().Msg("security.admin_password_hash is not set; admin login is disabled")
	}
	jwtManager, err := auth.NewJWTManager(&security)
	if err != nil {
		return nil, err
	}
	admins := auth.NewAdminAuthenticator(&security, jwtManager)

	responder := handlers.NewResponder(cfg.IsDevelopment())
	authMW := auth.NewMiddleware(jwtManager, admins, responder.WriteError)

	venueHandler := handlers.NewVenueHandler(venueService, responder)
	adminHandler := handlers.NewAdminHandler(admins, refresher, responder)
	healthHandler := handlers.NewHealthHandler(cfg.Server.Environment, responder)

	muxRouter := mux.NewRouter()
	router := server.NewRouter(venueHandler, adminHandler, healthHandler, authMW, responder, cfg, muxRouter)
	httpServer := server.NewVenuesHttpServer(router, cfg)

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.Add(httpServer)
	tree.Add(refresher)

	return &Container{
		Config:                     cfg,
		VenueRepository:            repo,
		QueryEngine:                engine,
		VenueService:               venueService,
		VenueStatsRefresherService: refresher,
		JWTManager:                 jwtManager,
		AdminAuthenticator:         admins,
		Responder:                  responder,
		VenueHandler:               venueHandler,
		AdminHandler:               adminHandler,
		HealthHandler:              healthHandler,
		MuxRouter:                  muxRouter,
		Router:                     router,
		VenuesHttpServer:           httpServer,
		Supervisor:                 tree,
	}, nil
}

// Close releases store connections.
func (c *Container) Close(ctx context.Context) error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

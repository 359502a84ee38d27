package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oakline/storefront-core/api/controllers"
	"github.com/oakline/storefront-core/api/routes"
	"github.com/oakline/storefront-core/internal/gateway"
	gatewaypg "github.com/oakline/storefront-core/internal/gateway/postgres"
	gatewayrest "github.com/oakline/storefront-core/internal/gateway/rest"
	"github.com/oakline/storefront-core/internal/registry"
	"github.com/oakline/storefront-core/internal/session"
	"github.com/oakline/storefront-core/pkg/config"
	"github.com/oakline/storefront-core/pkg/db"
	"github.com/oakline/storefront-core/pkg/logger"
	"github.com/oakline/storefront-core/pkg/metrics"
	"github.com/oakline/storefront-core/pkg/migrate"
	"github.com/oakline/storefront-core/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefrontd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefrontd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// The auth service is remote in both gateway modes, so the REST client
	// always gets built; postgres mode swaps only the table surface.
	restClient, err := gatewayrest.New(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to build gateway client", err)
		os.Exit(1)
	}

	var store gateway.Store = restClient
	var dbPinger controllers.Pinger

	if cfg.Gateway.IsPostgres() {
		dbClient, err := db.New(context.Background(), cfg.DB, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap database", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()

		if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
			logg.Error(context.Background(), "failed to run dev migrations", err)
			os.Exit(1)
		}

		pgStore := gatewaypg.New(dbClient)
		if cfg.DB.IsSQLite() && cfg.DB.AutoMigrate {
			if err := pgStore.AutoMigrate(); err != nil {
				logg.Error(context.Background(), "failed to auto-migrate sqlite schema", err)
				os.Exit(1)
			}
		}
		store = pgStore
		dbPinger = dbClient
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionStore, err := session.NewStore(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	reg, err := registry.New(registry.Deps{
		Store:   store,
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create core registry", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"gateway_mode": cfg.Gateway.Mode,
	})
	logg.Info(ctx, "starting storefront server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			Registry:     reg,
			SessionStore: sessionStore,
			Auth:         restClient,
			Redis:        redisClient,
			DB:           dbPinger,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "storefront server stopped unexpectedly", err)
		os.Exit(1)
	}
}

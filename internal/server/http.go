package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/reservio/reservio/internal/cache"
	"github.com/reservio/reservio/internal/config"
	"github.com/reservio/reservio/internal/database"
	"github.com/reservio/reservio/internal/domain/auth"
	"github.com/reservio/reservio/internal/domain/session"
	"github.com/reservio/reservio/internal/jobs"
	"github.com/reservio/reservio/internal/migrations"
)

// App bundles the process-wide collaborators. It is built once at
// startup and passed by reference; there are no package-level instances.
type App struct {
	Config   *config.Config
	Sessions session.Service
	Auth     *auth.Service
}

// Start wires the application together and runs the HTTP server
func Start(cfg *config.Config) error {
	initLogger(cfg.Logging.Level)

	var (
		db  *gorm.DB
		rdb *redis.Client
		err error
	)

	// Only the store behind the configured driver gets a connection.
	switch cfg.Session.Driver {
	case session.DriverPostgres:
		db, err = database.Connect(&cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			return err
		}
		slog.Info("Database connected successfully")

		if err := migrations.RunMigrations(db); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return err
		}
		slog.Info("Migrations completed successfully")
	case session.DriverRedis:
		rdb, err = cache.ConnectRedis(&cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			return err
		}
	}

	store, err := session.NewStore(cfg.Session.Driver, db, rdb)
	if err != nil {
		// Bad driver configuration is fatal at startup.
		slog.Error("Failed to construct session store", "driver", cfg.Session.Driver, "error", err)
		return err
	}

	sessions := session.NewService(store, session.Options{
		MaxPerUser:  cfg.Session.MaxPerUser,
		DefaultTTL:  cfg.Session.DefaultTTL(),
		IdleTTL:     cfg.Session.IdleTimeout(),
		AbsoluteTTL: cfg.Session.AbsoluteTimeout(),
	})
	defer func() {
		if err := sessions.Close(); err != nil {
			slog.Warn("Failed to close session store", "error", err)
		}
	}()

	keyStore, err := loadKeyStore(cfg)
	if err != nil {
		slog.Error("Failed to load signing keys", "error", err)
		return err
	}

	authService := auth.NewService(sessions, keyStore, cfg.Auth.Issuer)

	if cfg.Session.CleanupEnabled {
		scheduler := jobs.NewScheduler()
		job := &jobs.CleanupJob{Sessions: sessions, Mode: session.CleanupFull}
		if err := scheduler.AddJob(cfg.Session.CleanupCron, job); err != nil {
			slog.Error("Invalid cleanup cron spec", "spec", cfg.Session.CleanupCron, "error", err)
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("Session cleanup scheduled", "cron", cfg.Session.CleanupCron)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})

	SetupRoutes(app, &App{
		Config:   cfg,
		Sessions: sessions,
		Auth:     authService,
	})

	addr := cfg.Server.Address()
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func loadKeyStore(cfg *config.Config) (*auth.KeyStore, error) {
	if cfg.Auth.KeysPath == "" {
		slog.Warn("No keys_path configured, generating an ephemeral dev key")
		return auth.NewDevKeyStore()
	}
	ks, err := auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys from %s: %w", cfg.Auth.KeysPath, err)
	}
	return ks, nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}

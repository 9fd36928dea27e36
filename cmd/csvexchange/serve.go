package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"csv-exchange/articles"
	"csv-exchange/common"
	"csv-exchange/config"
	"csv-exchange/exports"
	"csv-exchange/imports"
	"csv-exchange/users"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the HTTP service. Settings come from the environment (and a
// .env file); flags override them.
type ServeCmd struct {
	Port     string `help:"Port to listen on. Overrides PORT."`
	Database string `help:"SQLite database file. Overrides DATABASE_PATH." type:"path"`
	Profile  string `help:"Default dialect profile. Overrides DIALECT_PROFILE." type:"existingfile"`
}

// Migrate creates the domain and job tables.
func Migrate(db *gorm.DB) error {
	if err := users.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if err := articles.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate articles: %w", err)
	}
	if err := common.AutoMigrateJobs(db); err != nil {
		return fmt.Errorf("migrate jobs: %w", err)
	}
	return nil
}

func (s *ServeCmd) Run(logger *slog.Logger) error {
	cfg := common.LoadConfig()
	if s.Port != "" {
		cfg.Port = s.Port
	}
	if s.Database != "" {
		cfg.DatabasePath = s.Database
	}
	if s.Profile != "" {
		cfg.DialectProfile = s.Profile
	}
	common.Configure(cfg)

	if cfg.DialectProfile != "" {
		p, err := loadProfile(cfg.DialectProfile)
		if err != nil {
			return err
		}
		common.DefaultProfile = p
		logger.Info("default dialect profile loaded", "path", cfg.DialectProfile)
	}

	db, err := common.Init(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer common.Close()
	if err := Migrate(db); err != nil {
		return err
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, the API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server starting", "addr", srv.Addr, "database", cfg.DatabasePath)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg common.Config, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), common.MetricsMiddleware(logger))
	r.RedirectTrailingSlash = false

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1", common.AuthMiddleware(cfg.JWTSecret))
	imports.RegisterRoutes(v1.Group("/imports"))
	exports.RegisterRoutes(v1.Group("/exports"))
	return r
}

// loadProfile reads and checks a dialect profile file. The empty path is the
// default dialect.
func loadProfile(path string) (config.Profile, error) {
	if path == "" {
		return config.Profile{}, nil
	}
	p, err := config.LoadProfile(path)
	if err != nil {
		return config.Profile{}, err
	}
	if _, err := p.Dialect(); err != nil {
		return config.Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return *p, nil
}

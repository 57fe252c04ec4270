package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/goventure/backend/config"
	"github.com/goventure/backend/controllers"
	"github.com/goventure/backend/database"
	"github.com/goventure/backend/middleware"
	"github.com/goventure/backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := newLogger(cfg)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	store := database.Open(ctx, cfg.MongoURI, cfg.DatabaseName, logger)

	if err := utils.SeedAdminUser(ctx, store.Collection("users"), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.WithError(err).Error("admin seed failed")
	} else {
		logger.WithField("email", cfg.AdminEmail).Info("admin user ensured")
	}

	uploader, serveLocal, err := newUploader(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("storage backend init failed")
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg, logger)))

	if serveLocal {
		r.Static("/uploads", cfg.UploadsDir)
	}

	controllers.Mount(r, controllers.Deps{
		Store:    store,
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.TokenTTL,
		Uploader: uploader,
	})

	logger.WithFields(logrus.Fields{"port": cfg.Port, "store": store.Name()}).Info("backend listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" || cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: utils.TimestampLayout})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func newUploader(ctx context.Context, cfg *config.Config) (utils.Uploader, bool, error) {
	if cfg.StorageDriver == "gcs" {
		u, err := utils.NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSCredsFile)
		return u, false, err
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		return nil, false, err
	}
	return utils.NewLocalUploader(cfg.UploadsDir), true, nil
}

func corsConfig(cfg *config.Config, logger *logrus.Logger) cors.Config {
	allowed := map[string]bool{}
	for _, origin := range cfg.ClientOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	logger.WithField("origins", cfg.ClientOrigins).Debug("CORS origins configured")

	dev := !cfg.Production()
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if allowed[origin] {
				return true
			}
			// Local dev serves the frontend from whatever port Vite picked.
			if dev && (strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:") ||
				strings.HasPrefix(origin, "http://192.168.")) {
				return true
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

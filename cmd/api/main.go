package main

import (
	"context"
	"time"

	"menucms/internal/auth"
	"menucms/internal/config"
	"menucms/internal/db"
	"menucms/internal/docstore"
	"menucms/internal/images"
	"menucms/internal/importer"
	"menucms/internal/logging"
	"menucms/internal/menu"
	"menucms/internal/router"
	"menucms/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	log, err := logging.New(cfg.Logging.Path, cfg.Logging.Level)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ───────────────────────── DOCUMENT STORE ─────────────────────────
	var store docstore.Store
	switch cfg.DocStore.Driver {
	case "postgres":
		pool, err := db.ConnectPostgres(ctx, cfg.DocStore.DatabaseURL, log)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		store = docstore.NewPostgresStore(pool)
	case "sqlite":
		gdb, err := db.ConnectSQLite(cfg.DocStore.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		gs, err := docstore.NewGormStore(gdb)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		store = gs
	default:
		log.Warn("using in-memory document store, data is lost on restart")
		store = docstore.NewMemoryStore()
	}

	// ───────────────────────── STORAGE ─────────────────────────
	var blobs storage.BlobStore
	switch cfg.Blob.Driver {
	case "r2":
		r2Client, err := storage.NewR2Client(ctx, storage.R2Config{
			Endpoint:      cfg.Blob.Endpoint,
			AccessKey:     cfg.Blob.AccessKey,
			SecretKey:     cfg.Blob.SecretKey,
			Bucket:        cfg.Blob.Bucket,
			PublicBaseURL: cfg.Blob.PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("R2 init failed: %v", err)
		}
		blobs = r2Client
	default:
		log.Warn("using in-memory blob store")
		blobs = storage.NewMemoryBlobStore(cfg.Blob.PublicBaseURL)
	}

	uploader := images.NewUploader(blobs, log)
	resolver := storage.NewResolver(blobs, storage.NewURLCache())

	// ───────────────────────── AUTH ─────────────────────────
	tokens, err := auth.NewTokens(cfg.JWTSecret, 0)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	userRepo := auth.NewDocUserRepository(store)
	authService := auth.NewService(userRepo, tokens, uploader, blobs, log.WithField("component", "auth"))

	// ───────────────────────── MENU ─────────────────────────
	loc, err := time.LoadLocation(cfg.Menu.Timezone)
	if err != nil {
		log.Fatalf("MENU_TIMEZONE: %v", err)
	}

	menuRepo := menu.NewDocRepository(store)
	menuService := menu.NewService(menuRepo, uploader, blobs, resolver, log.WithField("component", "menu"), loc)

	// ───────────────────────── IMPORT ─────────────────────────
	policy, err := importer.ParsePolicy(cfg.Import.FailurePolicy)
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	importLog := log.WithField("component", "import")
	writer := importer.NewWriter(store, policy, importLog)
	importHandler := importer.NewHandler(writer, authService, menuRepo, cfg.Origins, importLog)

	// ───────────────────────── GIN ─────────────────────────
	r := router.NewRouter(router.Deps{
		Tokens:   tokens,
		Users:    authService,
		Auth:     auth.NewHandler(authService),
		Menu:     menu.NewHandler(menuService),
		Importer: importHandler,
		Origins:  cfg.Origins,
		Log:      log,
	})

	// ───────────────────────── START ─────────────────────────
	log.WithFields(logrus.Fields{
		"port":     cfg.Port,
		"docstore": cfg.DocStore.Driver,
		"blob":     cfg.Blob.Driver,
		"policy":   policy,
	}).Info("API running")

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"docforest/internal/attachments"
	"docforest/internal/auth"
	"docforest/internal/blob"
	"docforest/internal/config"
	"docforest/internal/convert"
	"docforest/internal/handler"
	"docforest/internal/mediatypes"
	"docforest/internal/middleware"
	"docforest/internal/reconcile"
	"docforest/internal/repository"
	serviceDocsys "docforest/internal/service/docsystem"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, logCloser, err := config.NewLogger(cfg, "server")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Auth: without a JWKS URL the X-User-ID header is trusted (dev only)
	var jwtVerifier auth.JWTVerifier
	if cfg.OIDCJWKSURL != "" {
		jwtVerifier, err = auth.NewJWTVerifier(cfg.OIDCJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
	} else {
		logger.Warn("OIDC_JWKS_URL not set, trusting the " + middleware.DevUserHeader + " header (NEVER use in production!)")
	}

	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open forest store: %v", err)
	}
	defer stores.Close()

	store, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	types, err := mediatypes.Load()
	if err != nil {
		log.Fatalf("Failed to load media types: %v", err)
	}

	var converter convert.Converter
	if cfg.ConversionURL != "" {
		converter = convert.NewClient(cfg.ConversionURL, cfg.ConversionAPIKey, cfg.ConversionTimeout)
	}

	// Reconciler checkpoints are optional; without Redis a run always starts over
	var checkpoints reconcile.Checkpoints = reconcile.NoopCheckpoints{}
	if cfg.RedisURL != "" {
		rc, err := reconcile.NewRedisCheckpoints(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()
		checkpoints = rc
	}
	runner := reconcile.NewRunner(reconcile.New(reconcile.Config{
		Store:       store,
		Documents:   stores.Documents,
		Sniffer:     types,
		Checkpoints: checkpoints,
		Logger:      logger,
	}), logger)

	// Services; Validate already checked the codec settings
	codec, _ := cfg.Codec()
	docService := serviceDocsys.NewDocumentService(stores.Documents, stores.Access, stores.TxManager, codec, logger)
	treeService := serviceDocsys.NewTreeService(stores.Documents, stores.Access, logger)
	contentService := serviceDocsys.NewContentService(
		stores.Documents, stores.Access, store,
		attachments.New(cfg.MediaURL, logger), types, converter, logger,
	)
	favService := serviceDocsys.NewFavoriteService(stores.Documents, stores.Access, stores.Favorites, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.Register(mux, &handler.Handlers{
		Documents: handler.NewDocumentHandler(docService, logger),
		Tree:      handler.NewTreeHandler(treeService, logger),
		Content:   handler.NewContentHandler(contentService, logger),
		Favorites: handler.NewFavoriteHandler(favService, logger),
		Reconcile: handler.NewReconcileHandler(runner, cfg.AdminToken, cfg.ReconcilePageSize, logger),
		Health: handler.NewHealthHandler(
			handler.HealthCheck{Name: "database", Check: stores.Ping},
		),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier, logger, handler.PublicPaths...)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.DevUserHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if runner.Status().Running {
		logger.Warn("content-type reconciliation interrupted; rerun with resume to continue")
	}
	logger.Info("server stopped")
}

func openBlobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blob.Store, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, using the in-memory blob store")
		return blob.NewMemoryStore(), nil
	}
	return blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, logger)
}

package main

import (
	"context"
	"log"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docflow/internal/audit"
	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/database/migration"
	handlers "docflow/internal/http/handler"
	"docflow/internal/http/middleware"
	"docflow/internal/otel"
	"docflow/internal/policy"
	"docflow/internal/repository/postgres"
	"docflow/internal/service"
	"docflow/internal/storage"
	"docflow/internal/typespec"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (noop when the exporter is unavailable)
	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize the S3-compatible vault for signed artifacts (MinIO-supported)
	vault, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Load document type specs from the settings file
	registry, err := typespec.LoadRegistry(cfg.TypesFile)
	if err != nil {
		log.Fatalf("failed to load document types: %v", err)
	}

	// Policies and repositories
	workflowPolicy, err := policy.NewWorkflowPolicy(policy.DefaultTransitions())
	if err != nil {
		log.Fatalf("invalid transition table: %v", err)
	}
	permissionPolicy := policy.NewPermissionPolicy(policy.DefaultRoleGrants())
	signaturePolicy := policy.NewSignaturePolicy()

	docRepo := postgres.NewDocumentPostgres(db)
	sigRepo := postgres.NewSignaturePostgres(db)

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_transitions_total",
		Help: "Committed document status transitions by action and target status.",
	}, []string{"action", "status"})
	prometheus.MustRegister(transitions)

	docSvc := service.NewDocumentService(docRepo, registry)
	wfSvc := service.NewWorkflowService(service.WorkflowDeps{
		Repo:        docRepo,
		Signatures:  sigRepo,
		Registry:    registry,
		Workflow:    workflowPolicy,
		Permissions: permissionPolicy,
		SignPolicy:  signaturePolicy,
		Vault:       vault,
		Auditor:     audit.NewLogRecorder(),
		CurrentUser: middleware.IdentityFromContext,
		Transitions: transitions,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, docSvc, wfSvc, cfg.Auth.JWTSecret)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

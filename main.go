package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"planboard/config"
	"planboard/database"
	"planboard/handlers"
	"planboard/metrics"
	"planboard/middleware"
	"planboard/models"
	"planboard/services"
	"planboard/store"
)

func main() {
	cfg := config.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	middleware.SetJWTSecret(cfg.JWTSecret)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to initialize database", "err", err)
	}
	st := store.New(db, logger)

	// Services
	audit := services.NewAuditTrail(st, logger)
	ledger := services.NewAllocationLedger(st, cfg.AllocationWindowed, logger)
	guard := services.NewVersionGuard(logger)
	assignments := services.NewAssignmentManager(st, ledger, audit, logger)
	phases := services.NewPhaseManager(st, guard, audit, logger)
	detector := services.NewTimelineConflictDetector(st, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, st, logger)
	assignmentHandler := handlers.NewAssignmentHandler(assignments, ledger, logger)
	timelineHandler := handlers.NewTimelineHandler(detector, logger)
	auditHandler := handlers.NewAuditHandler(audit, logger)
	phaseHandler := handlers.NewPhaseHandler(phases, logger)

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(metrics.Middleware)

	// Public routes
	router.Post("/login", authHandler.Login)
	router.Handle("/metrics", metrics.Handler())

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(st))

		r.Get("/api/timeline", timelineHandler.Timeline)
		r.Get("/api/calendar", timelineHandler.Calendar)
		r.Get("/api/assignments", assignmentHandler.List)
		r.Get("/api/members/{id}/allocation", assignmentHandler.CheckAllocation)
		r.Get("/api/audit/entity", auditHandler.ByEntity)
		r.Get("/api/audit/actor/{id}", auditHandler.ByActor)
		r.Get("/api/audit/recent", auditHandler.Recent)

		// Schedule mutations are for managers and team leaders only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleManager, models.RoleTeamLeader))
			r.Post("/api/assignments", assignmentHandler.Create)
			r.Put("/api/assignments/{id}", assignmentHandler.Update)
			r.Delete("/api/assignments/{id}", assignmentHandler.Delete)
			r.Patch("/api/phases/{id}/status", phaseHandler.ChangeStatus)
		})
	})

	logger.Infow("server starting", "port", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		logger.Fatalw("server stopped", "err", err)
	}
}

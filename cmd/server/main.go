package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"babylog/internal/config"
	"babylog/internal/database"
	"babylog/internal/handlers"
	"babylog/internal/metrics"
	"babylog/internal/repository"
	"babylog/internal/security"
	"babylog/internal/service"
	"babylog/internal/templates"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	tmpl, err := templates.Load(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	log.Println("Templates loaded successfully")

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	babyRepo := repository.NewBabyRepository(db)
	careRepo := repository.NewCareRepository(db)

	// Initialize services
	authService := service.NewAuthService(db, userRepo, cfg.SessionDuration, m)
	familyService := service.NewFamilyService(db, familyRepo, babyRepo, m)
	careService := service.NewCareService(familyService, babyRepo, careRepo, m)
	adminService := service.NewAdminService(userRepo, familyRepo, babyRepo, careRepo)
	backupService := service.NewBackupService(db)

	emailService, err := service.NewEmailService(context.Background(), cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	remember := security.NewRememberTokenIssuer(cfg.RememberSecret, cfg.RememberDuration)
	limiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(authService, csrf, remember, limiter)

	h := &handlers.Handlers{
		Middleware: middleware,
		Auth:       handlers.NewAuthHandler(authService, emailService, remember, tmpl),
		Care:       handlers.NewCareHandler(authService, familyService, careService, middleware, tmpl),
		Family:     handlers.NewFamilyHandler(familyService, emailService, middleware, tmpl),
		Admin:      handlers.NewAdminHandler(adminService, backupService, middleware, tmpl),
	}

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", healthz(db))
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	// Metrics must wrap the mux directly to see the matched pattern
	handler := handlers.Logging(m.Middleware(mux))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanupExpiredSessions(ctx, authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: graceful shutdown failed: %v", err)
	}
}

// healthz reports whether the database answers
func healthz(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var one int
		if err := db.QueryRow("SELECT 1").Scan(&one); err != nil {
			log.Printf("Health check failed: %v", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.CleanupExpiredSessions()
			if err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
				continue
			}
			log.Printf("Expired sessions cleaned up: %d", n)
		}
	}
}

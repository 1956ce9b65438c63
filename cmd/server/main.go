/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Covera Brokerage Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, parse command-line flags
  2. Initialize SQLite store
  3. Wire notification channels (SMS gateways, SMTP)
  4. Create API handler with dependencies
  5. Start renewal scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the renewal scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/brokerage.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/covera/brokerage-engine/api"
	"github.com/covera/brokerage-engine/config"
	"github.com/covera/brokerage-engine/notify"
	"github.com/covera/brokerage-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment for local runs
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	notifier := buildNotifier(cfg)
	handler := api.NewHandler(store, notifier)

	// Renewal scheduler
	scheduler := api.NewRenewalScheduler(store, handler.Lifecycle, notifier)
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.LeadDays = cfg.RenewalLeadDays
	scheduler.GraceDays = cfg.RenewalGraceDays
	scheduler.Enabled = cfg.SchedulerEnabled
	handler.SetScheduler(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// buildNotifier wires SMS and email channels from config. Channels
// without credentials stay unconfigured and report skipped sends.
func buildNotifier(cfg config.Config) notify.Notifier {
	var providers []notify.SMSSender
	if cfg.SMSPrimaryURL != "" {
		providers = append(providers, notify.NewHTTPProvider("primary", cfg.SMSPrimaryURL, cfg.SMSPrimaryKey, cfg.SMSSender))
	}
	if cfg.SMSFallbackURL != "" {
		providers = append(providers, notify.NewHTTPProvider("fallback", cfg.SMSFallbackURL, cfg.SMSFallbackKey, cfg.SMSSender))
	}
	var sms *notify.Chain
	if len(providers) > 0 {
		sms = notify.NewChain(providers...)
	}

	var email notify.EmailSender
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	if sms == nil && email == nil {
		log.Println("No notification channels configured, notifications disabled")
	}
	return notify.NewService(sms, email)
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the medication reminder server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the store (SQLite by default, JSON files with -data)
  3. Load the ledger from the store
  4. Configure HTTP router and start the reminder scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: medications.db)
           Use ":memory:" for an in-memory database
  -data    Directory of legacy JSON data files; overrides -db

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler (no sweep runs mid-shutdown)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/medications.db"

  # Run against existing JSON data files
  ./server -data="./data"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Background reminder sweeps
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

	"github.com/warp/dose-engine/api"
	"github.com/warp/dose-engine/medication"
	"github.com/warp/dose-engine/store/jsonfile"
	"github.com/warp/dose-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "medications.db", "SQLite database path")
	dataDir := flag.String("data", "", "directory of JSON data files (overrides -db)")
	flag.Parse()

	// Initialize store
	var store medication.Store
	if *dataDir != "" {
		s, err := jsonfile.New(*dataDir)
		if err != nil {
			log.Fatalf("Failed to open data directory: %v", err)
		}
		store = s
		log.Printf("Using JSON data files in %s", *dataDir)
	} else {
		s, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer s.Close()
		store = s
	}

	// Load the ledger
	ledger := medication.NewLedger(context.Background(), store)

	// Initialize handler and router
	handler := api.NewHandler(ledger)
	router := api.NewRouter(handler)

	// Start the reminder scheduler
	scheduler := api.NewReminderScheduler(ledger)
	scheduler.Start()

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
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/celerix-dev/celerix-guard/internal/api"
	"github.com/celerix-dev/celerix-guard/internal/engine"
	"github.com/celerix-dev/celerix-guard/internal/notify"
	"github.com/celerix-dev/celerix-guard/internal/server"
	"github.com/celerix-dev/celerix-guard/internal/users"
)

func main() {
	fmt.Println("Starting Celerix Guard Daemon...")

	dataDir := os.Getenv("CELERIX_GUARD_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	httpPort := os.Getenv("CELERIX_GUARD_HTTP_PORT")
	if httpPort == "" {
		httpPort = "7003"
	}

	// 1. Initialize Persistence
	persister, err := engine.NewPersistence(dataDir)
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}

	// 2. Load existing data and start the Engine
	initialData, err := persister.LoadAll()
	if err != nil {
		log.Printf("Warning: Could not load existing data: %v", err)
	}

	store := engine.NewMemStore(initialData, persister)
	fmt.Printf("Engine started. Loaded %d collections.\n", len(initialData))

	// 3. Wire the service options from the environment
	var opts []users.Option

	if endpoint := os.Getenv("CELERIX_GUARD_MAIL_URL"); endpoint != "" {
		mailer := notify.NewMailer(notify.Config{
			Endpoint:    endpoint,
			FromAddress: os.Getenv("CELERIX_GUARD_MAIL_FROM"),
			APIKey:      os.Getenv("CELERIX_GUARD_MAIL_KEY"),
		})
		opts = append(opts, users.WithMailer(mailer))
		fmt.Println("Mail notifications enabled.")
	} else {
		fmt.Println("Mail notifications disabled (CELERIX_GUARD_MAIL_URL unset).")
	}

	if masterKey := os.Getenv("CELERIX_GUARD_MASTER_KEY"); masterKey != "" {
		opts = append(opts, users.WithSecretKey([]byte(masterKey)))
		fmt.Println("Secret encryption at rest enabled.")
	}

	svc, err := users.NewService(store, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize user guard: %v", err)
	}

	// 4. Initialize HTTP API
	h := &api.Handler{Users: svc}
	r := server.NewRouter(h, nil)

	// 5. Handle Graceful Shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutdown signal received. Finalizing disk writes...")
		store.Wait()
		fmt.Println("Persistence complete. Exiting.")
		os.Exit(0)
	}()

	// 6. Start the server
	fmt.Printf("Celerix Guard listening on :%s\n", httpPort)
	if err := r.Run(":" + httpPort); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

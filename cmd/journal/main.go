package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"journal/internal/config"
	"journal/internal/logging"
	"journal/internal/services"
)

func main() {
	runWatcher := flag.Bool("watcher", false, "Run the directory watcher and persistence worker")
	runRealtime := flag.Bool("realtime", false, "Run the notification relay and stream server")
	runAll := flag.Bool("all", false, "Run all services")
	configDir := flag.String("config", "config", "Configuration directory")
	flag.Parse()

	if *runAll || (!*runWatcher && !*runRealtime) {
		*runWatcher = true
		*runRealtime = true
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Logging error: %v", err)
	}
	defer logging.Shutdown()

	log.Println("Starting Journal Services...")
	if *runWatcher {
		log.Println("- Watcher: Enabled")
	}
	if *runRealtime {
		log.Println("- Realtime: Enabled")
	}

	mgr := services.NewManager(cfg, services.Options{
		RunWatcher:  *runWatcher,
		RunRealtime: *runRealtime,
	})

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()
	if err := mgr.Init(initCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	mgr.Start(bgCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down services...")
	case err := <-mgr.Errors():
		log.Printf("Fatal service error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	bgCancel()
	mgr.Shutdown(shutdownCtx)

	log.Println("All services stopped.")
}

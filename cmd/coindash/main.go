package main

import (
	"flag"
	"log"
	"os"

	"CoinDash/internal/di"
	"CoinDash/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s port=%d session=%s snapshots=%t/%s",
		cfg.Environment, cfg.Server.Port, cfg.Session.Backend, cfg.Snapshots.Enabled, cfg.Snapshots.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

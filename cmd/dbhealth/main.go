package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/app"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	repo "github.com/joseph-ayodele/recipe-extractor/internal/repository"
)

func main() {
	configPath := flag.String("config", os.Getenv("RECIPES_CONFIG"), "YAML configuration file")
	flag.Parse()

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if cfg.Store.Backend == repo.BackendNone || cfg.Store.Backend == "" {
		log.Println("ERROR: STORE_BACKEND is none, nothing to check")
		log.Println("  set STORE_BACKEND=json|sqlite|postgres (and STORE_PATH or DB_URL)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := repo.Open(ctx, app.StoreConfig(cfg.Store), nil)
	if err != nil {
		log.Fatalf("opening %s store: %v", cfg.Store.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("ERROR: closing store: %v", err)
		}
	}()

	if err := store.HealthCheck(ctx); err != nil {
		log.Fatalf("store health: FAIL (%v)", err)
	}
	log.Println("store health: OK")

	recipes, err := store.List(ctx)
	if err != nil {
		log.Fatalf("listing recipes: %v", err)
	}
	log.Printf("recipes count: %d", len(recipes))
	for _, r := range recipes {
		log.Printf("- [%d] %s (%s)", r.ID, r.Title, r.Contributor)
	}
}

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cadvision/backend/config"
	httpDelivery "github.com/cadvision/backend/internal/delivery/http"
	"github.com/cadvision/backend/internal/export"
	"github.com/cadvision/backend/internal/infrastructure/cache"
	"github.com/cadvision/backend/internal/infrastructure/fiscal"
	"github.com/cadvision/backend/internal/infrastructure/store"
	"github.com/cadvision/backend/internal/infrastructure/vision"
	"github.com/cadvision/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting CadVision Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	// Initialize infrastructure dependencies
	resultCache := cache.NewMemoryCache(cfg.Cache.TTL)

	visionClient := vision.NewClient(cfg.Vision.APIKey, cfg.Vision.BaseURL, cfg.Vision.Timeout)
	fiscalClient := fiscal.NewClient(cfg.Fiscal.APIToken, cfg.Fiscal.BaseURL, cfg.Fiscal.Timeout)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		visionClient.SetDebug(true)
		fiscalClient.SetDebug(true)
		log.Printf("Adapter debug mode enabled")
	}

	log.Printf("Vision engine configured: %s", cfg.Vision.BaseURL)
	log.Printf("Fiscal catalog configured: %s", cfg.Fiscal.BaseURL)

	productStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open product store: %v", err)
	}
	defer productStore.Close()
	log.Printf("Product store: %s", cfg.Database.Path)

	// Initialize usecase layer
	debug := cfg.Inference.Debug || cfg.Server.Environment == "development"
	orchestrator := usecase.NewOrchestrator(
		resultCache,
		visionClient,
		fiscalClient,
		productStore,
		usecase.NewCodeExtractor(debug),
		usecase.NewInferenceEngine(usecase.InferenceConfig{
			EnableFuzzyMatching: cfg.Inference.EnableFuzzyMatching,
			FuzzyEditDistance:   cfg.Inference.FuzzyEditDistance,
			EnableDebugLogging:  debug,
		}),
		usecase.NewSchemaMapper(debug),
		usecase.NewConfidenceScorer(),
		usecase.CascadeConfig{
			FiscalTimeout:      cfg.Fiscal.Timeout,
			EnableDebugLogging: debug,
		},
	)

	log.Printf("Inference: fuzzy=%v, edit_distance=%d, debug=%v",
		cfg.Inference.EnableFuzzyMatching,
		cfg.Inference.FuzzyEditDistance,
		debug)

	exporter := export.NewService(productStore)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(orchestrator, productStore, exporter)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}

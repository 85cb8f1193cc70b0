package main

import (
	"fmt"
	"log"

	"quotedraft/internal/config"
	"quotedraft/internal/handler"
	"quotedraft/internal/parser"
	_ "quotedraft/internal/parser/openai" // register the openai provider
	"quotedraft/internal/router"
	"quotedraft/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Build the AI parser chain. A nil chain means no provider is
	// configured and extraction stays heuristic-only.
	parserChain, err := parser.BuildChain(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("failed to build parser chain: %w", err)
	}
	if parserChain == nil {
		log.Println("main: no AI parser configured, running heuristic-only")
	}

	// Initialize services
	extractSvc := service.NewExtractService(parserChain, cfg.Extract)

	// Initialize handlers
	extractH := handler.NewExtractHandler(extractSvc)
	healthH := handler.NewHealthHandler()

	// Setup router
	r := router.Setup(extractH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

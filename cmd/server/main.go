package main

import (
	"log"

	approuters "MindEase/internal/app_routers"
	"MindEase/internal/configuration"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local overrides (e.g. MINDEASE_CONFIG)
	_ = godotenv.Load()

	container, err := configuration.BuildContainer()
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	// Setup routers
	approuters.StartServer(container)
}

// Command server runs the campusfeed HTTP API.
package main

import (
	"context"
	"log"
	"os"

	"github.com/campusfeed/campusfeed/internal/server"
	"github.com/campusfeed/campusfeed/internal/server/config"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}

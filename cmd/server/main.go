package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/qsolog/internal/server"
	"github.com/dmitrijs2005/qsolog/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; values in it win over the inherited environment.
	if err := godotenv.Overload(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

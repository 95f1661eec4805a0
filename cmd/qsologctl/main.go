package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/qsolog/internal/ctl"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Overload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctl.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

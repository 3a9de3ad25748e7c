package main

import (
	"context"
	"log"
	"os"

	"github.com/vcompra/cartsync/internal/cli"
	"github.com/vcompra/cartsync/internal/config"
	"github.com/vcompra/cartsync/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}

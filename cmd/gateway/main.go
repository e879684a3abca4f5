package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/passvault/internal/gateway"
	"github.com/dmitrijs2005/passvault/internal/gateway/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := gateway.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}

package main

import (
	"context"
	"log"

	"postlens-be/internal/bootstrap"
	"postlens-be/internal/config"
	"postlens-be/internal/server"
	"postlens-be/internal/tracer"
	"postlens-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	if container.ConsumerService != nil {
		if err := container.ConsumerService.Start(); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}
	if err := container.SignalForwarder.Run(context.Background()); err != nil {
		log.Printf("Signal Forwarder Error: %v", err)
	}

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}

package main

import (
	"context"
	"fmt"

	httphandler "github.com/Presidentty1/nestling-care-log-sub003/internal/handler/http"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/server"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/service"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("nestling-server")
	cfg, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx := context.Background()
	db, err := store.NewConnectPostgres(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	defer db.Close()

	storages := store.NewStorages(db, log)
	services := service.NewServices(storages, cfg.App, log)
	handler := httphandler.NewHandler(services, cfg.App.Version, log)

	srv, err := server.NewServer(handler.Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"venues-server/auth"
	"venues-server/config"
	"venues-server/di"
	"venues-server/logging"
	"venues-server/util"
)

func main() {
	seedPath := flag.String("seed", "", "load venues from a JSON fixture before serving (e.g. "+config.GetResourcePath(config.VENUES_SEED_RESOURCE)+")")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of the given admin password and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize container")
	}
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	if *seedPath != "" {
		seedVenues(ctx, container, *seedPath)
	}

	// Runs the HTTP server and the stats refresher until a signal arrives.
	if err := container.Supervisor.Serve(ctx); err != nil {
		log.Error().Err(err).Msg("Supervisor stopped with error")
	}
	log.Info().Msg("Shutdown complete")
}

// seedVenues creates every venue in the fixture. Invalid entries are logged
// and skipped.
func seedVenues(ctx context.Context, container *di.Container, path string) {
	inputs, err := util.ReadVenueInputsFromJSON(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read seed file")
	}

	created := 0
	for i, input := range inputs {
		v, err := container.VenueService.CreateVenue(ctx, input)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping seed venue")
			continue
		}
		log.Debug().Str("id", v.ID).Str("name", v.Name).Msg("Seeded venue")
		created++
	}
	log.Info().Int("created", created).Int("total", len(inputs)).Str("path", path).Msg("Seeding finished")
}

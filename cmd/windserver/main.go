// Command windserver serves wind levels over HTTP and runs a globe session
// for every websocket client.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"windglobe/config"
	"windglobe/regions"
	"windglobe/server"
	"windglobe/wind"
)

func main() {
	var (
		settingsPath = flag.String("config", "settings.json", "Settings file")
		dataDir      = flag.String("data", "", "Level directory (overrides data.dir)")
		port         = flag.Int("port", 0, "HTTP port (overrides server.port)")
		verbose      = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	settings, err := config.Load(*settingsPath, logger)
	if err != nil {
		logger.Error("failed to load settings", "path", *settingsPath, "err", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		settings.Data.Dir = *dataDir
	}
	if *port != 0 {
		settings.Server.Port = *port
	}

	store, err := wind.OpenStore(settings.Data.Dir, settings.Data.CacheSize, logger)
	if err != nil {
		logger.Error("failed to open levels", "dir", settings.Data.Dir, "err", err)
		os.Exit(1)
	}
	if !store.Has(settings.Data.InitialLevel) {
		logger.Error("initial level not in manifest", "level", settings.Data.InitialLevel, "levels", store.Levels())
		os.Exit(1)
	}

	var describer regions.Describer = regions.DescriberFunc(regions.Classify)
	if settings.Data.Atlas != "" {
		atlas, err := regions.LoadAtlas(settings.Data.Atlas)
		if err != nil {
			logger.Error("failed to load atlas", "path", settings.Data.Atlas, "err", err)
			os.Exit(1)
		}
		logger.Info("atlas loaded", "areas", atlas.Len())
		describer = atlas
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(settings, store, describer, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

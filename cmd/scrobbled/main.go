// Command scrobbled runs the scrobble daemon: it listens for playback
// signals on a Unix socket, identifies what is being watched, and
// scrobbles it to Trakt.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"scrobble/internal/config"
	"scrobble/internal/daemon"
	"scrobble/internal/ipc"
	"scrobble/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, path, found, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if !found {
		logger.Info("no config file found, using defaults", logging.String("path", path))
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	logger.Info("scrobbled ready",
		logging.String("socket", cfg.SocketPath()),
		logging.String("config", path))

	<-ctx.Done()
	logger.Info("shutting down")
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lazharichir/playnine/config"
	"github.com/lazharichir/playnine/logging"
	"github.com/lazharichir/playnine/server"
)

func main() {
	cfg := config.Load()

	logs, err := logging.NewBackend(cfg.LogDir, cfg.DebugLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logs.Close()
	log := logs.Logger("MAIN")

	srv, err := server.New(cfg, logs)
	if err != nil {
		log.Errorf("Server setup failed: %v", err)
		os.Exit(1)
	}
	defer srv.Shutdown()

	log.Infof("Starting Play Nine backend on %s", cfg.Bind())
	if err := srv.Start(context.Background()); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (yaml, json, or toml)")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Println("appmanager", version)
		return
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)

	srv, err := NewServer(cfg, logger)
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			logger.Error("failed to start appmanager", "op", serverErr.Op, "error", serverErr.Err)
			return serverErr.ExitCode
		}
		logger.Error("failed to start appmanager", "error", err)
		return ExitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			logger.Error("appmanager exited with error", "op", serverErr.Op, "error", serverErr.Err)
			return serverErr.ExitCode
		}
		logger.Error("appmanager exited with error", "error", err)
		return ExitHTTPError
	}

	logger.Info("appmanager shut down cleanly")
	return ExitSuccess
}

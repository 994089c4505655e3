package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzbill/provision/internal/config"
	"github.com/rzbill/provision/internal/server"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/version"
	"golang.org/x/sync/errgroup"
)

var (
	configFile = flag.String("config", "", "Configuration file path")
	dataDir    = flag.String("data-dir", "", "Data directory (overrides data_dir from the config)")
	hostname   = flag.String("hostname", "", "Hostname of this config server (overrides hostname from the config)")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	debug      = flag.Bool("debug", false, "Enable debug mode (shorthand for --log-level=debug)")
	logFormat  = flag.String("log-format", "", "Log format (text, json)")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger, err := log.ApplyConfig(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log configuration: %v\n", err)
		os.Exit(1)
	}
	log.SetDefaultLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", log.Err(err))
		os.Exit(1)
	}
}

// applyFlags overrides the loaded configuration with flags given on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data-dir":
			cfg.DataDir = *dataDir
		case "hostname":
			cfg.Hostname = *hostname
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	if *debug {
		cfg.Log.Level = "debug"
	}
}

func run(cfg *config.Config, logger log.Logger) error {
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := srv.Open(); err != nil {
		return err
	}
	defer srv.Close()

	logger.Info("Starting provisiond",
		log.Str("version", version.Version),
		log.Str("commit", version.Commit),
		log.Hostname(cfg.Hostname),
		log.Str("dataDir", cfg.DataDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down provisiond")
		return nil
	})
	return g.Wait()
}

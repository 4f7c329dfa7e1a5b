package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/icomwland/icomwland/pkg/config"
	"github.com/icomwland/icomwland/pkg/logging"
	"github.com/icomwland/icomwland/pkg/verbose"
)

var (
	configPath  = flag.String("config", "config.yaml", "Configuration file path")
	version     = flag.Bool("version", false, "Show version information")
	verboseFlag = flag.Bool("verbose", false, "Enable verbose protocol-error logging")
)

const (
	Version = "0.1.0-dev"
	Build   = "development"
)

func main() {
	flag.Parse()
	verbose.SetEnabled(*verboseFlag)

	if *version {
		fmt.Printf("icomwland version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitGlobalLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseGlobalLogger()

	logging.Infof("main", "icomwland version %s starting...", Version)
	logging.Infof("main", "Station: %s (%s)", cfg.Station.Callsign, cfg.Station.Name)
	logging.Infof("main", "Radio: %s:%d", cfg.Radio.Host, cfg.Radio.ControlPort)

	daemon, err := NewDaemon(cfg)
	if err != nil {
		logging.Errorf("main", "failed to create daemon: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Errorf("main", "failed to start daemon: %v", err)
		os.Exit(1)
	}
	logging.Info("main", "icomwland started successfully")

	<-sigChan
	logging.Info("main", "shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Errorf("main", "error during shutdown: %v", err)
	}
	logging.Info("main", "icomwland stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/logging"

	flags "github.com/jessevdk/go-flags"
)

type options struct {
	Transport  string        `long:"transport" description:"Transport type (tcp, unix)" default:"tcp"`
	TCPAddress string        `long:"tcp-address" description:"TCP address (for tcp transport)" default:"127.0.0.1:18099"`
	SocketPath string        `long:"socket-path" description:"Unix domain socket path (for unix transport)" default:"/tmp/bizdir.sock"`
	StaleAfter time.Duration `long:"stale-after" description:"Age past which a binding stops being served" default:"5m"`
	Verbose    bool          `short:"v" long:"verbose" description:"Verbose logging"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logging.NewStdZapLogger(opts.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("[bizreg] ", logging.LogFuncs{
		Debugf: zapLogger.Debugf,
		Infof:  zapLogger.Infof,
		Warnf:  zapLogger.Warnf,
		Errorf: zapLogger.Errorf,
	})

	logger.Infof("Starting business service directory")
	logger.Infof("Transport: %s", opts.Transport)

	var transportConfig directory.TransportConfig
	switch opts.Transport {
	case "tcp":
		transportConfig = directory.TransportConfig{
			TransportType: directory.TransportTCP,
			TCPAddress:    opts.TCPAddress,
		}
		logger.Infof("TCP address: %s", opts.TCPAddress)

	case "unix", "uds":
		transportConfig = directory.TransportConfig{
			TransportType: directory.TransportUDS,
			SocketPath:    opts.SocketPath,
			FileMode:      0600,
		}
		logger.Infof("Unix socket path: %s", opts.SocketPath)

	default:
		logger.Errorf("Unsupported transport type: %s", opts.Transport)
		os.Exit(1)
	}

	registry := directory.NewRegistry(directory.RegistryOptions{
		StaleAfter: opts.StaleAfter,
	}, logger)

	server, err := directory.NewServer(registry, transportConfig, logger)
	if err != nil {
		logger.Errorf("Failed to create server: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := server.Start(ctx); err != nil {
		logger.Errorf("Failed to start server: %v", err)
		os.Exit(1)
	}

	logger.Infof("Service directory is running at %s", server.GetAddress())
	logger.Infof("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Infof("Received shutdown signal, stopping server...")

	stopCtx := context.Background()
	if err := server.Stop(stopCtx); err != nil {
		logger.Errorf("Error stopping server: %v", err)
		os.Exit(1)
	}

	logger.Infof("Service directory stopped cleanly")
}

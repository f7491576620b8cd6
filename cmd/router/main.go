package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lattixio/telemetry-mesh/arp"
	"github.com/lattixio/telemetry-mesh/config"
	"github.com/lattixio/telemetry-mesh/router"
)

func main() {
	configFile := flag.String("config", "", "path to a router configuration file")
	flag.Parse()

	var cfg *config.RouterConfig
	if *configFile != "" {
		loaded, err := config.LoadRouter(*configFile)
		if err != nil {
			slog.Error("failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	} else {
		// Fall back to the original CLI surface (§6.4): first positional
		// argument is the routing-table path, the rest are interface names
		// bound in order.
		args := flag.Args()
		if len(args) < 2 {
			slog.Error("usage: router <routing-table-file> <iface>... (or -config <file>)")
			os.Exit(1)
		}
		cfg = config.DefaultRouter()
		cfg.RoutingTablePath = args[0]
		cfg.Interfaces = args[1:]
	}

	logger := config.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	table, err := router.LoadRoutingTable(cfg.RoutingTablePath)
	if err != nil {
		logger.Error("failed to load routing table", slog.String("path", cfg.RoutingTablePath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := arp.New()

	ifaces := router.NewIfaceTable(cfg.Interfaces)

	transport, err := router.NewRawSocketTransport(cfg.Interfaces)
	if err != nil {
		logger.Error("failed to open raw sockets", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer transport.Close()

	engine := router.NewEngine(table, cache, ifaces, transport, logger)

	if cfg.ArpTablePath != "" {
		if err := engine.LoadStaticARP(cfg.ArpTablePath); err != nil {
			logger.Error("failed to load static arp table", slog.String("path", cfg.ArpTablePath), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("router starting", slog.Any("interfaces", cfg.Interfaces))

	// Every HandleFrame call runs on this goroutine, the engine's single owner.
	frames := make(chan func(), 64)
	for i := range cfg.Interfaces {
		iface := i
		go func() {
			err := transport.RecvLoop(iface, func(iface int, frame []byte) {
				frames <- func() {
					if err := engine.HandleFrame(iface, frame); err != nil {
						logger.Warn("failed to handle frame", slog.Int("iface", iface), slog.String("error", err.Error()))
					}
				}
			})
			if err != nil {
				logger.Debug("raw socket recv loop ended", slog.Int("iface", iface), slog.String("error", err.Error()))
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("router shutting down")
			return
		case handle := <-frames:
			handle()
		}
	}
}

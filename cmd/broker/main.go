package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"

	"github.com/lattixio/telemetry-mesh/broker"
	"github.com/lattixio/telemetry-mesh/config"
)

func main() {
	configFile := flag.String("config", "", "path to a broker configuration file")
	flag.Parse()

	cfg, err := config.LoadBroker(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ln, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		logger.Error("failed to listen on tcp address", slog.String("addr", cfg.TCPAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ln.Close()

	udp, err := net.ListenPacket("udp", cfg.UDPAddr)
	if err != nil {
		logger.Error("failed to listen on udp address", slog.String("addr", cfg.UDPAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer udp.Close()

	logger.Info("broker listening", slog.String("tcp_addr", cfg.TCPAddr), slog.String("udp_addr", cfg.UDPAddr))

	b := broker.New(ln, udp, os.Stdin, logger)
	if err := b.Run(context.Background()); err != nil {
		logger.Error("broker loop exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("broker shut down cleanly")
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"predmarket/config"
	"predmarket/core/state"
	"predmarket/native/market"
	"predmarket/observability/logging"
	"predmarket/observability/metrics"
	"predmarket/rpc"
	"predmarket/storage"
)

const rpcTokenEnv = "PREDMARKET_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("predmarketd", cfg.Environment, cfg.LogFile)
	logger.Info("starting settlement engine", "network", cfg.NetworkName, "dataDir", cfg.DataDir)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "market"))
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	engine := market.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(metrics.NewMarketEmitter())

	token := strings.TrimSpace(os.Getenv(rpcTokenEnv))
	server := rpc.NewServer(engine, manager, logger, token, cfg.RPCRateLimit, cfg.RPCRateBurst)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("rpc server failed", "err", err)
			os.Exit(1)
		}
	}
}

// Command termwatch connects one trading account to the gateway and prints
// the synchronized terminal state as it evolves.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantrelay/termsync/config"
	"github.com/quantrelay/termsync/internal/configclient"
	"github.com/quantrelay/termsync/internal/hashing"
	"github.com/quantrelay/termsync/internal/observability"
	"github.com/quantrelay/termsync/internal/telemetry"
	"github.com/quantrelay/termsync/internal/terminal"
	"github.com/quantrelay/termsync/internal/transport"
)

const (
	reportInterval    = 10 * time.Second
	telemetryShutdown = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.FromFile(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.BuildZapLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	observability.SetLogger(logger)

	meterProvider, shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Fatalf("initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdown)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			observability.Log().Error("telemetry shutdown",
				observability.Field{Key: "error", Value: err.Error()})
		}
	}()

	engineMetrics, err := telemetry.NewEngineMetrics(meterProvider)
	if err != nil {
		log.Fatalf("create engine metrics: %v", err)
	}

	descriptors := configclient.New(cfg.Gateway.ConfigURL, cfg.Gateway.Token,
		configclient.WithTTL(cfg.Gateway.DescriptorTTL.Std()))

	state := terminal.NewState(cfg.Gateway.AccountID, descriptors,
		terminal.WithLogger(logger),
		terminal.WithMetrics(engineMetrics))

	client := transport.NewClient(ctx, cfg.Gateway.StreamURL, cfg.Gateway.Token, cfg.Gateway.AccountID, state)
	if err := client.Start(); err != nil {
		log.Fatalf("connect account stream: %v", err)
	}
	defer client.Stop()

	observability.Log().Info("account stream connected",
		observability.Field{Key: "accountId", Value: cfg.Gateway.AccountID})

	accountType := hashing.AccountType(cfg.Gateway.AccountType)
	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			observability.Log().Info("shutting down")
			return
		case <-ticker.C:
			report(ctx, state, accountType)
		}
	}
}

// report prints a one-line summary of the combined terminal state.
func report(ctx context.Context, state *terminal.State, accountType hashing.AccountType) {
	info := state.AccountInformation()
	if info == nil {
		fmt.Fprintln(os.Stdout, "synchronizing...")
		return
	}

	line := fmt.Sprintf("balance=%.2f equity=%.2f positions=%d orders=%d connected=%t broker=%t",
		info.Balance, info.Equity,
		len(state.Positions()), len(state.Orders()),
		state.Connected(), state.ConnectedToBroker())

	hashes, err := state.GetHashes(ctx, accountType, "0")
	if err != nil {
		observability.Log().Error("compute state hashes",
			observability.Field{Key: "error", Value: err.Error()})
	} else if hashes.Positions != nil {
		line += " positionsHash=" + *hashes.Positions
	}
	fmt.Fprintln(os.Stdout, line)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/subcommands"

	"github.com/status-im/portfolio-proxy/config"
	"github.com/status-im/portfolio-proxy/core"
	"github.com/status-im/portfolio-proxy/portfolio"
)

const defaultConfigPath = "config.yaml"

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP and websocket server" }
func (*serveCmd) Usage() string {
	return `serve [-config config.yaml]

  Starts the price cache, portfolio store, websocket price feed and HTTP API,
  and runs until SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "Path to the yaml configuration.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadConfigOrDefault(c.configPath)
	if err != nil {
		log.Printf("Error loading config: %v", err)
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry, err := core.Setup(ctx, cfg)
	if err != nil {
		log.Printf("Error setting up services: %v", err)
		return subcommands.ExitFailure
	}

	if err := registry.StartAll(ctx); err != nil {
		log.Printf("Error starting services: %v", err)
		return subcommands.ExitFailure
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, stopping services...")
	cancel()
	registry.StopAll()

	return subcommands.ExitSuccess
}

type pricesCmd struct {
	configPath string
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "print current USD prices for coin ids" }
func (*pricesCmd) Usage() string {
	return `prices [-config config.yaml] <id1,id2,...>

  Looks the coins up through the same cache and upstream client the server
  uses and prints the prices and cache status as JSON.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "Path to the yaml configuration.")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	var ids []string
	for _, arg := range f.Args() {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	cfg, err := config.LoadConfigOrDefault(c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}

	registry := core.NewRegistry()
	pricesService := core.SetupPrices(registry, cfg)
	if err := registry.StartAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting services: %v\n", err)
		return subcommands.ExitFailure
	}
	defer registry.StopAll()

	snapshot, status := pricesService.GetPrices(ctx, ids)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]interface{}{"prices": snapshot, "status": status}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type seedCmd struct {
	configPath string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "replace all portfolios with the sample data" }
func (*seedCmd) Usage() string {
	return `seed [-config config.yaml]

  Deletes every portfolio in the configured store and loads two sample
  portfolios with their transactions. Only useful with a persistent driver.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", defaultConfigPath, "Path to the yaml configuration.")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadConfigOrDefault(c.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}

	store, err := portfolio.NewStore(cfg.Portfolio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating portfolio store: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := store.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting portfolio store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Stop()

	seeded, err := portfolio.Seed(ctx, store, portfolio.SampleData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error seeding portfolios: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, p := range seeded {
		fmt.Printf("%s  %s  (%d transactions)\n", p.ID, p.Name, len(p.Transactions))
	}
	return subcommands.ExitSuccess
}

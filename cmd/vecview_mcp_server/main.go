package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/vecview"
	"github.com/flarexio/vecview/persistence/chromem"

	mcpE "github.com/flarexio/vecview/mcp"
	natsT "github.com/flarexio/vecview/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "vecview_mcp_server",
		Usage: "VecView MCP Server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "store",
				Usage: "Path to a local vector store directory or export file",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a config file for the local store",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "edge-id",
				Usage: "Edge ID for connecting to the VecView service",
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func loadConfig(path string) (vecview.Config, error) {
	var cfg vecview.Config
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

func run(ctx context.Context, cmd *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// stdout carries the protocol; zap's development logger writes to stderr
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	var (
		svc       vecview.Service
		endpoints vecview.EndpointSet
	)

	edgeID := cmd.String("edge-id")
	storePath := cmd.String("store")

	switch {
	case edgeID != "" && storePath != "":
		return errors.New("store and edge-id are mutually exclusive")

	case edgeID != "":
		opts := []nats.Option{
			nats.Name("VecView MCP Server - " + edgeID),
		}

		if natsCreds := cmd.String("nats-creds"); natsCreds != "" {
			opts = append(opts, nats.UserCredentials(natsCreds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		topic := fmt.Sprintf("edges.%s.vecview", edgeID)
		remote := natsT.MakeEndpoints(nc, topic)

		svc = vecview.ProxyMiddleware(remote)(svc)
		endpoints = *remote

	default:
		if storePath != "" {
			cfg.Store.Path = storePath
		}

		if cfg.Store.Path == "" && !cfg.Store.Remote.Enabled() {
			return errors.New("either store or edge-id is required")
		}

		store, err := chromem.NewStore(ctx, cfg.Store)
		if err != nil {
			return err
		}

		embedder, err := chromem.NewEmbedder(cfg.Embedding)
		if err != nil {
			store.Close()
			return err
		}

		svc, err = vecview.NewService(cfg, store, embedder)
		if err != nil {
			store.Close()
			return err
		}

		svc = vecview.LoggingMiddleware(log)(svc)
		defer svc.Close()

		endpoints = vecview.MakeEndpoints(svc, cfg.Query)
	}

	s := NewStdioMCPServer(os.Stdin, os.Stdout)
	s.AddEndpoint(mcp.MethodInitialize, mcpE.InitializeEndpoint(svc))
	s.AddEndpoint(mcp.MethodPing, mcpE.PingEndpoint(svc))
	s.AddEndpoint(mcp.MethodToolsList, mcpE.ListToolsEndpoint())
	s.AddEndpoint(mcp.MethodToolsCall, mcpE.CallToolEndpoint(endpoints, cfg.Table))

	done := make(chan error, 1)
	go func() {
		done <- s.Listen(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sign := <-quit:
		log.Info("graceful shutdown", zap.String("signal", sign.String()))

	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/vecview"
	"github.com/flarexio/vecview/persistence/chromem"

	mcpE "github.com/flarexio/vecview/mcp"
	httpT "github.com/flarexio/vecview/transport/http"
	natsT "github.com/flarexio/vecview/transport/nats"
)

func main() {
	cmd := &cli.Command{
		Name:  "vecview",
		Usage: "VecView read-only vector store viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Path to the VecView service",
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL",
				Value:   "wss://nats.flarex.io",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:  "edge-id",
				Usage: "Edge ID for the NATS transport, read from <path>/id when omitted",
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP server address",
				Value: ":8080",
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

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}

	switch {
	case cfg.Store.Remote.Enabled():
	case cfg.Store.Path == "":
		cfg.Store.Path = filepath.Join(path, "vectors")
	case !filepath.IsAbs(cfg.Store.Path):
		cfg.Store.Path = filepath.Join(path, cfg.Store.Path)
	}

	return cfg, nil
}

func edgeID(cmd *cli.Command, path string) (string, error) {
	if id := cmd.String("edge-id"); id != "" {
		return id, nil
	}

	idBytes, err := os.ReadFile(filepath.Join(path, "id"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", err
	}

	return strings.TrimSpace(string(idBytes)), nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "vecview")
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(path)
	if err != nil {
		return err
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

	svc, err := vecview.NewService(cfg, store, embedder)
	if err != nil {
		store.Close()
		return err
	}

	svc = vecview.LoggingMiddleware(log)(svc)
	defer svc.Close()

	endpoints := vecview.MakeEndpoints(svc, cfg.Query)

	id, err := edgeID(cmd, path)
	if err != nil {
		return err
	}

	// Add NATS Transport
	if id != "" {
		opts := []nats.Option{
			nats.Name("VecView Server - " + id),
		}

		natsCreds := filepath.Join(path, "user.creds")
		if _, err := os.Stat(natsCreds); err == nil {
			opts = append(opts, nats.UserCredentials(natsCreds))
		}

		nc, err := nats.Connect(cmd.String("nats"), opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "vecview",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + id + ".vecview"

		root := srv.AddGroup(topic)
		natsT.AddEndpoints(root, endpoints)

		log.Info("nats transport enabled", zap.String("topic", topic))
	} else {
		log.Warn("no edge id, nats transport disabled")
	}

	httpEnabled := cmd.Bool("http")
	if httpEnabled {
		r := gin.Default()
		httpT.AddRouters(r, endpoints, cfg.Table)

		mcpEndpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
		mcpEndpoints[mcp.MethodInitialize] = mcpE.InitializeEndpoint(svc)
		mcpEndpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
		mcpEndpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint()
		mcpEndpoints[mcp.MethodToolsCall] = mcpE.CallToolEndpoint(endpoints, cfg.Table)
		httpT.AddStreamableRouters(r, mcpEndpoints)

		httpAddr := cmd.String("http-addr")
		go r.Run(httpAddr)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}

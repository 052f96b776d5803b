// Command server runs the tann HTTP admin/query surface: it loads
// configuration, optionally pre-creates a default collection sized by
// the HNSW config section, and serves pkg/server's authenticated REST
// API until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/tann/pkg/config"
	"github.com/therealutkarshpriyadarshi/tann/pkg/indexcore"
	"github.com/therealutkarshpriyadarshi/tann/pkg/observability"
	"github.com/therealutkarshpriyadarshi/tann/pkg/server"
	"github.com/therealutkarshpriyadarshi/tann/pkg/vectorspace"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		configFile  = flag.String("config", "", "path to YAML configuration file (optional)")
		host        = flag.String("host", "", "REST server host (overrides config/env)")
		port        = flag.Int("port", 0, "REST server port (overrides config/env)")
		defaultNS   = flag.String("default-namespace", "", "pre-create a default collection under this namespace")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("tann server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}
	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := loadConfig(*configFile)
	if *host != "" {
		cfg.REST.Host = *host
	}
	if *port > 0 {
		cfg.REST.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := observability.NewDefaultLogger()
	metrics := observability.NewMetrics()

	srv := server.NewServer(server.Config{
		Host:        cfg.REST.Host,
		Port:        cfg.REST.Port,
		CORSEnabled: cfg.REST.CORSEnabled,
		CORSOrigins: cfg.REST.CORSOrigins,
		Auth: server.AuthConfig{
			Enabled:      cfg.REST.AuthEnabled,
			JWTSecret:    cfg.REST.JWTSecret,
			PublicPaths:  cfg.REST.PublicPaths,
			AdminPaths:   cfg.REST.AdminPaths,
			RequireAdmin: true,
		},
		RateLimit: server.RateLimitConfig{
			Enabled:        cfg.REST.RateLimitEnabled,
			RequestsPerSec: cfg.REST.RateLimitPerSec,
			Burst:          cfg.REST.RateLimitBurst,
			PerIP:          cfg.REST.RateLimitPerIP,
			PerUser:        cfg.REST.RateLimitPerUser,
			GlobalLimit:    cfg.REST.RateLimitGlobal,
		},
	}, metrics, logger)

	if *defaultNS != "" {
		idx, err := indexcore.New(indexcore.IndexOption{
			DataType:            vectorspace.F32,
			Metric:              vectorspace.L2,
			Engine:              indexcore.EngineHNSW,
			Dimension:           cfg.HNSW.Dimensions,
			MaxElements:         1_000_000,
			EnableReplaceVacant: true,
		}, indexcore.HnswIndexOption{
			M:              cfg.HNSW.M,
			EfConstruction: cfg.HNSW.EfConstruction,
			Ef:             cfg.HNSW.DefaultEfSearch,
			RandomSeed:     100,
		})
		if err != nil {
			log.Fatalf("failed to create default collection: %v", err)
		}
		if err := srv.Registry().Put(*defaultNS, idx); err != nil {
			log.Fatalf("failed to register default collection: %v", err)
		}
		logger.Infof("pre-created default collection %q (dim=%d)", *defaultNS, cfg.HNSW.Dimensions)
	}

	printStartupInfo(cfg)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	log.Println("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		log.Printf("received signal: %v", sig)
	case err := <-errChan:
		log.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Printf("error stopping server: %v", err)
	}
	log.Println("Server stopped. Goodbye!")
}

func loadConfig(configFile string) *config.Config {
	if configFile == "" {
		return config.LoadFromEnv()
	}
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		log.Printf("warning: %v, falling back to environment variables", err)
		return config.LoadFromEnv()
	}
	return cfg
}

func printBanner() {
	fmt.Println("tann - multi-algorithm approximate nearest neighbor index")
	fmt.Printf("version %s (commit %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("REST API configuration:")
	fmt.Printf("  address:       %s:%d\n", cfg.REST.Host, cfg.REST.Port)
	fmt.Printf("  auth enabled:  %v\n", cfg.REST.AuthEnabled)
	fmt.Printf("  cors enabled:  %v\n", cfg.REST.CORSEnabled)
	fmt.Printf("  rate limiting: %v\n", cfg.REST.RateLimitEnabled)
	fmt.Println()
	fmt.Println("HNSW defaults:")
	fmt.Printf("  M:               %d\n", cfg.HNSW.M)
	fmt.Printf("  efConstruction:  %d\n", cfg.HNSW.EfConstruction)
	fmt.Printf("  ef:              %d\n", cfg.HNSW.DefaultEfSearch)
	fmt.Printf("  dimensions:      %d\n", cfg.HNSW.Dimensions)
	fmt.Println()
}

func showUsage() {
	fmt.Println("tann server - HTTP admin/query surface over the ANN index core")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help                    Show this help message")
	fmt.Println("  -version                 Show version information")
	fmt.Println("  -config PATH             Path to a YAML configuration file")
	fmt.Println("  -host HOST               REST server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT               REST server port (default: 8080)")
	fmt.Println("  -default-namespace NAME  Pre-create a collection under NAME at startup")
}

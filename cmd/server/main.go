// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basilisk-security/keystore/internal/config"
	"github.com/basilisk-security/keystore/pkg/engine"
	"github.com/basilisk-security/keystore/pkg/health"
)

var (
	// Version information (set during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/keystore/config.yaml", "Path to configuration file")
	addr := flag.String("addr", ":8443", "Address to serve health checks on")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("keystore engine\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Git Commit: %s\n", commit)
		fmt.Printf("  Built:      %s\n", date)
		os.Exit(0)
	}

	if envConfig := os.Getenv("KEYSTORE_CONFIG"); envConfig != "" {
		*configPath = envConfig
	}

	slog.Info("starting keystore engine", "config", *configPath, "version", version)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// No hardware-mirror subordinate or legacy cipher is wired in this
	// binary; a deployment fronting real 'P'/'Q' key blobs supplies its
	// own blob.LegacyCipher and legacy.Subordinate implementations here.
	eng, err := engine.New(cfg, nil, nil)
	if err != nil {
		slog.Error("failed to create engine", slog.Any("error", err))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/ready", func(w http.ResponseWriter, r *http.Request) {
		status := eng.Ready(r.Context())
		if status != health.StatusHealthy && status != health.StatusDegraded {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "%s\n", status)
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		slog.Info("serving health checks", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-signalContext().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("keystore engine stopped successfully")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("using default configuration", slog.Any("error", err))
		return config.Default(), nil
	}
	return cfg, nil
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}

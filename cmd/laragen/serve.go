package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/laragen/laragen/internal/config"
	"github.com/laragen/laragen/internal/document"
	"github.com/laragen/laragen/internal/mock"
	"github.com/laragen/laragen/internal/stats"
	"github.com/laragen/laragen/internal/tlsutil"
	"github.com/laragen/laragen/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a mock API for the analyzed application",
	Long: `Analyzes the application (or loads a previously generated document) and
serves synthetic responses: templated route matching, request validation,
response synthesis and simulated authentication. With --watch the sources
are re-analyzed on change and the served operations swap atomically.`,
	RunE: runServe,
}

var (
	specFlag string
	portFlag int
)

func init() {
	serveCmd.Flags().StringVar(&specFlag, "spec", "", "Serve an existing OpenAPI document instead of analyzing sources")
	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Override server port")
	serveCmd.Flags().BoolP("watch", "w", false, "Re-analyze and reload on source changes")
	serveCmd.Flags().Bool("tls", false, "Serve HTTPS (auto-generates a self-signed cert when none is configured)")
	serveCmd.Flags().StringP("source", "s", "", "Laravel application root")

	viper.BindPFlag("server.watch", serveCmd.Flags().Lookup("watch"))
	viper.BindPFlag("server.tls.enabled", serveCmd.Flags().Lookup("tls"))
	viper.BindPFlag("source.dir", serveCmd.Flags().Lookup("source"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	doc, err := loadOrAnalyze(cfg)
	if err != nil {
		return err
	}

	collector := stats.NewCollector()
	server := mock.NewServer(doc, mock.Config{
		Auth: mock.AuthConfig{
			Tokens:  cfg.Auth.Tokens,
			APIKeys: cfg.Auth.APIKeys,
			Basic:   cfg.Auth.Basic,
		},
		Seed:  cfg.Server.Seed,
		Log:   true,
		Stats: collector,
	})

	mux := http.NewServeMux()
	notifier := watch.NewNotifier()
	mux.Handle("/_laragen/ws", notifier)
	mux.HandleFunc("/_laragen/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
			log.Printf("encode stats: %v", err)
		}
	})
	mux.Handle("/", server.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Server.Watch && specFlag == "" {
		if err := startWatching(ctx, cfg, server, notifier); err != nil {
			return err
		}
	}

	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Server.TLS.Enabled {
		cm := tlsutil.NewCertificateManager(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, cfg.Server.TLS.StorePath)
		cert, err := cm.GetCertificate(cfg.Server.TLS.AutoGenerate)
		if err != nil {
			return fmt.Errorf("tls setup: %w", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{*cert}}
		go func() {
			log.Printf("Mock server listening on https://%s", addr)
			if err := httpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		}()
	} else {
		go func() {
			log.Printf("Mock server listening on http://%s", addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
	return nil
}

// loadOrAnalyze serves a pre-generated document when --spec is given,
// otherwise analyzes the configured source tree.
func loadOrAnalyze(cfg *config.Config) (*openapi3.T, error) {
	if specFlag != "" {
		doc, err := document.Load(specFlag)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		return doc, nil
	}
	doc, result, err := analyzeSources(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Analyzed %d routes", len(result.Routes))
	reportDiagnostics(result.Diagnostics)
	return doc, nil
}

func startWatching(ctx context.Context, cfg *config.Config, server *mock.Server, notifier *watch.Notifier) error {
	watcher, err := watch.NewWatcher(cfg.Source.Dir, func() {
		doc, result, err := analyzeSources(cfg)
		if err != nil {
			log.Printf("Reload failed: %v", err)
			notifier.Notify(watch.ReloadEvent{Kind: "failed", Message: err.Error()})
			return
		}
		server.Reload(doc)
		log.Printf("Reloaded: %d routes", len(result.Routes))
		notifier.Notify(watch.ReloadEvent{Kind: "reloaded", Message: fmt.Sprintf("%d routes", len(result.Routes))})
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Source.Dir, err)
	}
	go watcher.Run(ctx)
	log.Printf("Watching %s for changes", cfg.Source.Dir)
	return nil
}

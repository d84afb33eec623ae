// Package main provides the entry point for fwt-server.
//
// fwt-server exposes token issuance, validation and revocation for the
// configured authorities over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/yndnr/fwt-go/internal/core/service"
	"github.com/yndnr/fwt-go/internal/infra/buildinfo"
	"github.com/yndnr/fwt-go/internal/infra/confloader"
	"github.com/yndnr/fwt-go/internal/infra/shutdown"
	"github.com/yndnr/fwt-go/internal/server/config"
	"github.com/yndnr/fwt-go/internal/server/httpserver"
	"github.com/yndnr/fwt-go/internal/server/localserver"
	"github.com/yndnr/fwt-go/internal/storage"
	"github.com/yndnr/fwt-go/internal/telemetry/logger"
	"github.com/yndnr/fwt-go/internal/telemetry/metric"
	"github.com/yndnr/fwt-go/pkg/crypto/kdf"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		checkOnly   = flag.Bool("check", false, "Validate the configuration and exit")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("fwt-server %s\n", buildinfo.String())
		return nil
	}

	cfg, loader, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *checkOnly {
		fmt.Println("configuration OK")
		return nil
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := log.Slog()

	info := buildinfo.Get()
	log.Info("starting fwt-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile)

	store, err := storage.Open(storage.Config{
		Backend:       cfg.Revocation.Backend,
		Dir:           cfg.Revocation.Dir,
		PurgeInterval: cfg.Revocation.PurgeInterval,
		Logger:        slogLogger,
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewCollector(store.Size))

	tokenSvc, err := initService(cfg, store, metrics, log)
	if err != nil {
		store.Close()
		return fmt.Errorf("init service: %w", err)
	}
	log.Info("authorities loaded", "authorities", tokenSvc.Authorities(), "revocation", cfg.Revocation.Backend)

	trusted, err := httpserver.ParseTrustedProxies(cfg.Server.HTTP.TrustedProxies)
	if err != nil {
		store.Close()
		return fmt.Errorf("trusted proxies: %w", err)
	}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		TokenService:   tokenSvc,
		Metrics:        metrics,
		Logger:         slogLogger,
		APIKeyHashes:   cfg.Server.HTTP.APIKeyHashes,
		RateLimit:      cfg.Server.HTTP.RateLimit,
		RateBurst:      cfg.Server.HTTP.RateBurst,
		TrustedProxies: trusted,
	})
	if len(cfg.Server.HTTP.APIKeyHashes) == 0 {
		log.Warn("no api_key_hashes configured, the API is unauthenticated")
	}

	httpServer, err := httpserver.New(httpserver.Config{
		Addr:         cfg.Server.HTTP.Addr,
		TLSCertFile:  cfg.Server.HTTP.TLSCertFile,
		TLSKeyFile:   cfg.Server.HTTP.TLSKeyFile,
		ClientCAFile: cfg.Server.HTTP.ClientCAFile,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		Logger:       slogLogger,
	}, router)
	if err != nil {
		store.Close()
		return fmt.Errorf("init http server: %w", err)
	}

	localSrv, err := initLocalServer(cfg, tokenSvc, store, metrics, slogLogger)
	if err != nil {
		store.Close()
		return fmt.Errorf("init local socket: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)
	shutdownHandler.SetLogger(slogLogger)

	// Hooks run in reverse order: the server drains before the store closes.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		log.Info("closing revocation store")
		return store.Close()
	})
	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})
	if localSrv != nil {
		shutdownHandler.OnShutdown("local", func(ctx context.Context) error {
			return localSrv.Shutdown(ctx)
		})
	}

	if path := loader.FilePath(); path != "" {
		watcher, err := watchConfig(path, loader, log)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			cancel(err)
		}
	}()

	if localSrv != nil {
		ln, err := localSrv.Listen()
		if err != nil {
			cancel(fmt.Errorf("local socket: %w", err))
		} else {
			go func() {
				if err := localSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("local socket error", "error", err)
					cancel(err)
				}
			}()
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}

	log.Info("server stopped gracefully")
	return nil
}

func initService(cfg *config.ServerConfig, store storage.RevocationStore, metrics *metric.Registry, log logger.Logger) (*service.TokenService, error) {
	sc, err := cfg.ServiceConfig()
	if err != nil {
		return nil, err
	}
	defer kdf.Zero(sc.MasterKey)

	sc.Revocations = store
	sc.Metrics = metrics
	sc.Logger = log
	return service.NewTokenService(sc)
}

// initLocalServer builds the management socket server, or returns nil when
// no socket is configured. Its API routes skip authentication.
func initLocalServer(cfg *config.ServerConfig, tokenSvc *service.TokenService, store storage.RevocationStore, metrics *metric.Registry, log *slog.Logger) (*localserver.Server, error) {
	if cfg.Server.Local.Socket == "" {
		return nil, nil
	}
	api := httpserver.NewRouter(&httpserver.RouterConfig{
		TokenService: tokenSvc,
		Metrics:      metrics,
		Logger:       log,
	})
	return localserver.New(localserver.Config{
		Path:   cfg.Server.Local.Socket,
		Logger: log,
	}, localserver.NewHandler(localserver.HandlerConfig{
		API:         api,
		Authorities: tokenSvc.Authorities,
		Revocations: store.Size,
		Logger:      log,
	}))
}

// watchConfig re-applies the log level when the config file changes. Other
// settings take effect on restart.
func watchConfig(path string, loader *confloader.Loader, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Error("config reload failed", "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Error("reloaded config is invalid, keeping the current one", "error", err)
			return
		}
		if err := logger.SetLevel(next.Log.Level); err != nil {
			log.Error("apply log level", "error", err)
			return
		}
		log.Info("config reloaded", "log_level", logger.GetLevel())
	})
	watcher.StartAsync()
	return watcher, nil
}

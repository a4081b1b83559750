package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/mediafetch/config"
	httpx "github.com/target/mediafetch/internal/http"
	"github.com/target/mediafetch/internal/service"
)

const httpShutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives listener failures. Optional.
	ErrCh chan<- error
}

// StartHTTPServer binds the listener and serves the API in the background.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("http server config is required")
	}
	if cfg.Services.Downloads == nil {
		return nil, errors.New("download service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	httpCfg := appCfg.HTTP
	httpCfg.Sanitize()

	handler := buildHTTPHandler(httpHandlerConfig{
		Services: httpx.RouterServices{
			Downloads: cfg.Services.Downloads,
			Logger:    logger,
		},
		HTTP: httpCfg,
	})

	return startServer(serverParams{
		logger:  logger,
		handler: handler,
		http:    httpCfg,
		errCh:   cfg.ErrCh,
	})
}

type httpHandlerConfig struct {
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	router := httpx.NewRouter(cfg.Services)
	return http.MaxBytesHandler(router, cfg.HTTP.MaxBodyBytes)
}

type serverParams struct {
	logger  *slog.Logger
	handler http.Handler
	http    config.HTTPConfig
	errCh   chan<- error
}

func startServer(p serverParams) (*http.Server, error) {
	addr := p.http.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           p.handler,
		ReadHeaderTimeout: p.http.ReadTimeout,
		ReadTimeout:       p.http.ReadTimeout,
		WriteTimeout:      p.http.WriteTimeout,
		IdleTimeout:       p.http.IdleTimeout,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	go func() {
		p.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("HTTP server failed", "error", err)
			if p.errCh != nil {
				select {
				case p.errCh <- fmt.Errorf("http server: %w", err):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context   context.Context
	Server    *http.Server
	Downloads *service.DownloadService
	Logger    *slog.Logger
}

// ShutdownHTTPServer stops accepting requests, drains in-flight ones and then
// stops the download workers.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	if cfg.Server != nil {
		if cfg.Logger != nil {
			cfg.Logger.Info("shutting down HTTP server")
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
		err := cfg.Server.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		} else if cfg.Logger != nil {
			cfg.Logger.Info("HTTP server stopped")
		}
	}

	if cfg.Downloads != nil {
		if err := cfg.Downloads.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("download service: %w", err))
		}
	}

	return errors.Join(errs...)
}

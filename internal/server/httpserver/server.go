package httpserver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yndnr/fwt-go/internal/infra/tlsroots"
)

// Config holds listener settings for Server.
type Config struct {
	Addr string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// ClientCAFile enables mutual TLS.
	ClientCAFile string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	reloader   *tlsroots.CertReloader
	logger     *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// New creates a new HTTP server. It loads TLS material eagerly so a bad
// certificate fails startup instead of the first handshake.
func New(cfg Config, handler http.Handler) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelWarn),
		},
		logger: cfg.Logger,
	}

	if cfg.TLSCertFile == "" && cfg.TLSKeyFile == "" {
		if cfg.ClientCAFile != "" {
			return nil, errors.New("client CA requires a TLS certificate")
		}
		return s, nil
	}
	if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
		return nil, errors.New("TLS certificate and key must be set together")
	}

	reloader, err := tlsroots.NewCertReloader(cfg.TLSCertFile, cfg.TLSKeyFile, tlsroots.WithLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("load TLS certificate: %w", err)
	}

	var clientCAs *x509.CertPool
	if cfg.ClientCAFile != "" {
		clientCAs, err = tlsroots.LoadPool(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("load client CA: %w", err)
		}
	}

	s.reloader = reloader
	s.httpServer.TLSConfig = tlsroots.ServerConfig(reloader, clientCAs)
	return s, nil
}

// TLS reports whether the server serves HTTPS.
func (s *Server) TLS() bool {
	return s.reloader != nil
}

// ListenAndServe listens on the configured address and serves requests.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves requests on ln until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	if s.reloader != nil {
		s.reloader.StartAsync()
		ln = tls.NewListener(ln, s.httpServer.TLSConfig)
	}

	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", s.reloader != nil)
	return s.httpServer.Serve(ln)
}

// Addr returns the bound address once Serve has been called.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.reloader != nil {
		s.reloader.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

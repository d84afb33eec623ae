package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertReloader holds a key pair loaded from disk and reloads it when the
// files change.
type CertReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher  *fsnotify.Watcher
	timer    *time.Timer
	timerMu  sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// ReloaderOption configures a CertReloader.
type ReloaderOption func(*CertReloader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *CertReloader) {
		r.logger = logger
	}
}

// WithDebounce sets how long to wait after the last change before reloading.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *CertReloader) {
		r.debounce = d
	}
}

// NewCertReloader loads the key pair and returns a reloader for it.
func NewCertReloader(certFile, keyFile string, opts ...ReloaderOption) (*CertReloader, error) {
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 250 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// GetCertificate returns the current certificate.
// This implements tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Reload reads the key pair from disk. On failure the previous certificate
// stays in use.
func (r *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load key pair: %w", err)
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logger.Info("certificate loaded", "cert_file", r.certFile)
	return nil
}

// Start watches the certificate and key files until Stop is called.
func (r *CertReloader) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	r.watcher = w

	// Directories are watched so that rename-based rotation is seen.
	dirs := map[string]bool{filepath.Dir(r.certFile): true, filepath.Dir(r.keyFile): true}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("tlsroots: watch dir %s: %w", dir, err)
		}
	}

	watched := map[string]bool{filepath.Base(r.certFile): true, filepath.Base(r.keyFile): true}
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			r.scheduleReload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("certificate watcher error", "error", err)
		case <-r.done:
			return w.Close()
		}
	}
}

// StartAsync runs Start in a goroutine.
func (r *CertReloader) StartAsync() {
	go func() {
		if err := r.Start(); err != nil {
			r.logger.Error("certificate watcher stopped", "error", err)
		}
	}()
}

// Stop ends watching. It is safe to call more than once.
func (r *CertReloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.timerMu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.timerMu.Unlock()
	})
}

// scheduleReload coalesces bursts of events (cert and key written one
// after the other) into one reload.
func (r *CertReloader) scheduleReload() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		if err := r.Reload(); err != nil {
			r.logger.Error("certificate reload failed", "error", err, "cert_file", r.certFile)
		}
	})
}

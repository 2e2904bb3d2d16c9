package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	internalauth "protospace/internal/auth"
	"protospace/internal/core"
	"protospace/internal/store"
)

const (
	allowRemoteEnvKey = "PROTOSPACE_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	defaultUploadMaxBytes  int64 = 10 << 20
	defaultMultipartMemory int64 = 8 << 20
)

// Options configures a Server.
type Options struct {
	Service         *core.Service
	Users           store.UserStore
	Tokens          *internalauth.TokenIssuer
	SessionTTL      time.Duration
	UploadMaxBytes  int64
	MultipartMemory int64
	Logger          *slog.Logger
}

// Server wraps the HTML pages and JSON API for protospace.
type Server struct {
	addr            string
	service         *core.Service
	authService     *AuthService
	tokens          *internalauth.TokenIssuer
	uploadMaxBytes  int64
	multipartMemory int64
	pages           map[string]*template.Template
	logger          *slog.Logger
}

// New creates a new server instance.
func New(addr string, opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("prototype service is required")
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	uploadMaxBytes := opts.UploadMaxBytes
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = defaultUploadMaxBytes
	}
	multipartMemory := opts.MultipartMemory
	if multipartMemory <= 0 {
		multipartMemory = defaultMultipartMemory
	}

	return &Server{
		addr:            addr,
		service:         opts.Service,
		authService:     NewAuthService(opts.Users, opts.SessionTTL),
		tokens:          opts.Tokens,
		uploadMaxBytes:  uploadMaxBytes,
		multipartMemory: multipartMemory,
		pages:           pages,
		logger:          logger.With("component", "server"),
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withMethodOverride(s.withIdentity(s.routes())))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base URL into a listen address.
func ListenAddr(listenURL string) (string, error) {
	if listenURL == "" {
		return "", fmt.Errorf("listen url is required")
	}
	if u, err := url.Parse(listenURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(listenURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return listenURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

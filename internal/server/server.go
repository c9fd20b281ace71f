// Package server exposes the live preview over HTTP: the preview page, the
// websocket the page stays in sync through, and a small JSON API for the
// render cache, the metadata override and the transform stages.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/mdpreview/internal/bridge"
	"github.com/conneroisu/mdpreview/internal/cache"
	"github.com/conneroisu/mdpreview/internal/config"
	"github.com/conneroisu/mdpreview/internal/logging"
	"github.com/conneroisu/mdpreview/internal/metadata"
	"github.com/conneroisu/mdpreview/internal/mount"
	"github.com/conneroisu/mdpreview/internal/patch"
	"github.com/conneroisu/mdpreview/internal/settings"
	"github.com/conneroisu/mdpreview/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of the preview engine the server drives.
type Engine interface {
	EnsureRendered(ctx context.Context) string
	Stylesheet() string
	Settings() settings.Snapshot
	UpdateSettings(ctx context.Context, fn func(settings.Snapshot) settings.Snapshot) settings.Snapshot
	Override() metadata.Override
	SetOverride(ctx context.Context, o metadata.Override)
	Metadata(ctx context.Context) metadata.Context
	CacheStats() cache.Stats
	ClearCache()
	RegisterPatchTarget(t patch.Target)
	ClearPatchTarget()
}

// MountState reports what is currently mounted on the preview pages.
type MountState interface {
	Latest() (bridge.Message, bool)
}

// StageCatalog lists the registered transform stages.
type StageCatalog interface {
	IDs() []string
}

// Options configures a PreviewServer beyond the application config.
type Options struct {
	Container string
	Isolation bool
	Stages    StageCatalog
}

// PreviewServer serves the live preview of one document.
type PreviewServer struct {
	config  *config.Config
	engine  Engine
	hub     *Hub
	mounted MountState
	opts    Options
	logger  logging.Logger

	// attached counts websocket handlers holding the patch target.
	targetMu sync.Mutex
	attached int

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
	closed       bool
}

// New creates a preview server. The hub must be the publisher behind the
// bridge that state reports on.
func New(cfg *config.Config, eng Engine, hub *Hub, state MountState, opts Options, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Container == "" {
		opts.Container = mount.DefaultContainer
	}

	s := &PreviewServer{
		config:  cfg,
		engine:  eng,
		hub:     hub,
		mounted: state,
		opts:    opts,
		logger:  logger.WithComponent("server"),
	}

	hub.welcome = s.welcome
	return s
}

// Handler returns the router with all routes and middleware installed.
func (s *PreviewServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		s.requestLogger,
		s.securityHeaders,
		s.cors,
	)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/render", s.handleRender)
		r.Get("/stylesheet", s.handleStylesheet)
		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
		r.Get("/metadata", s.handleGetMetadata)
		r.Put("/metadata", s.handlePutMetadata)
		r.Get("/settings", s.handleGetSettings)
		r.Get("/stages", s.handleStages)
		r.Post("/stages/{id}/toggle", s.handleToggleStage)
	})

	return r
}

// Start runs the websocket hub and serves HTTP until ctx is cancelled or
// Shutdown is called.
func (s *PreviewServer) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprintf("%d", s.config.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.serverMutex.Lock()
	if s.closed {
		s.serverMutex.Unlock()
		listener.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	previewURL := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Preview server listening", "url", previewURL, "document", s.config.Document)

	if s.config.Server.Open {
		go s.openBrowser(ctx, previewURL)
	}

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and closes the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.hub.stop()

		s.serverMutex.Lock()
		s.closed = true
		server := s.httpServer
		s.serverMutex.Unlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// welcome replays the mounted state to a page that just connected.
func (s *PreviewServer) welcome() []bridge.Message {
	if s.mounted == nil {
		return nil
	}
	msg, ok := s.mounted.Latest()
	if !ok {
		return nil
	}
	return []bridge.Message{msg}
}

// attach makes the connected pages the patch target.
func (s *PreviewServer) attach() {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	s.attached++
	s.engine.RegisterPatchTarget(s.hub.Surface())
}

// detach drops the patch target once no page is left to patch, so later
// updates go through the bridge and reach late joiners intact.
func (s *PreviewServer) detach() {
	s.targetMu.Lock()
	defer s.targetMu.Unlock()
	s.attached--
	if s.attached == 0 {
		s.engine.ClearPatchTarget()
		s.logger.Debug(context.Background(), "Patch target cleared")
	}
}

func (s *PreviewServer) openBrowser(ctx context.Context, target string) {
	time.Sleep(100 * time.Millisecond) // Give server time to start

	// Only ever hand a plain http(s) URL to system commands
	err := validation.ValidateURL(target)
	if err != nil {
		s.logger.Warn(ctx, err, "Refusing to open browser", "url", target)
		return
	}

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", target).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	case "darwin":
		err = exec.Command("open", target).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", target)
	}
}

func (s *PreviewServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String())
	})
}

func (s *PreviewServer) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *PreviewServer) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin checks if the origin is in the allowed origins list
func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	return validation.ValidateOrigin(origin, s.config.Server.AllowedOrigins) == nil
}

// checkOrigin validates the origin of a websocket upgrade. Same-origin pages,
// the configured host and explicitly allowed origins are accepted.
func (s *PreviewServer) checkOrigin(r *http.Request) bool {
	originURL, err := validation.ParseOrigin(r.Header.Get("Origin"))
	if err != nil {
		return false
	}
	if originURL.Host == r.Host {
		return true
	}

	port := fmt.Sprintf("%d", s.config.Server.Port)
	allowed := append([]string{
		net.JoinHostPort(s.config.Server.Host, port),
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
	}, s.config.Server.AllowedOrigins...)

	return validation.ValidateOrigin(originURL.String(), allowed) == nil
}

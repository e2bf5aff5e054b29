package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/codelab/internal/api/http"
	"github.com/GriffinCanCode/codelab/internal/api/middleware"
	"github.com/GriffinCanCode/codelab/internal/api/ws"
	"github.com/GriffinCanCode/codelab/internal/domain/editor"
	"github.com/GriffinCanCode/codelab/internal/domain/preview"
	"github.com/GriffinCanCode/codelab/internal/domain/terminal"
	"github.com/GriffinCanCode/codelab/internal/domain/workspace"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/config"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/codelab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codelab/internal/preview/sandbox"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	previews  *preview.Manager
	terminals *terminal.Manager
	workspace *workspace.Workspace
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
	cancel    context.CancelFunc
	watching  chan struct{}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return newServer(cfg, logger)
}

func newServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing codelab server",
		zap.String("port", cfg.Server.Port),
		zap.String("workspace", cfg.Workspace.Dir),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())

	files, err := loadWorkspace(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	editorOpts := editor.Defaults()
	if cfg.Editor.OptionsFile != "" {
		editorOpts, err = editor.LoadFile(cfg.Editor.OptionsFile)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to load editor options: %w", err)
		}
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Preview.ScriptTimeout

	previews := preview.NewManager(preview.Config{
		Viewport:   cfg.Preview.Viewport,
		AutoReload: cfg.Preview.AutoReload,
		Debounce:   cfg.Preview.Debounce(),
		Yield:      cfg.Preview.RestartYield,
		ConsoleCap: cfg.Preview.ConsoleCap,
		Sandbox:    sandboxCfg,
		Editor:     editorOpts,
	}, logger.Named("preview")).WithMetrics(metrics)

	termCfg := terminal.DefaultConfig()
	termCfg.ExecDelay = cfg.Terminal.ExecDelay
	termCfg.ScrollbackCap = cfg.Terminal.ScrollbackCap
	termCfg.WorkDir = cfg.Terminal.WorkDir
	terminals := terminal.NewManager(termCfg, files, logger.Named("terminal")).WithMetrics(metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := apihttp.NewHandlers(previews, terminals, files, metrics, logger.Named("api"))
	handlers.Register(router)
	ws.NewHandler(previews, terminals, metrics, logger.Named("stream")).Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	httpServer := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s := &Server{
		router:    router,
		http:      httpServer,
		previews:  previews,
		terminals: terminals,
		workspace: files,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
		cancel:    cancel,
	}

	if cfg.Workspace.Dir != "" && cfg.Workspace.Watch {
		watcher, err := workspace.NewWatcher(cfg.Workspace.Dir, files, func(f workspace.File) {
			handlers.Propagate(f)
		}, logger.Named("watch"))
		if err != nil {
			logger.Warn("Workspace watching disabled", zap.Error(err))
		} else {
			s.watching = make(chan struct{})
			go func() {
				defer close(s.watching)
				watcher.Run(ctx)
			}()
			logger.Info("Watching workspace", zap.String("dir", cfg.Workspace.Dir))
		}
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func loadWorkspace(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*workspace.Workspace, error) {
	if cfg.Workspace.Dir == "" {
		logger.Info("Using starter workspace")
		return workspace.Starter(), nil
	}
	files, err := workspace.Load(ctx, cfg.Workspace.Dir, logger.Named("workspace"))
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace %s: %w", cfg.Workspace.Dir, err)
	}
	return files, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Workspace returns the workspace served by s
func (s *Server) Workspace() *workspace.Workspace {
	return s.workspace
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ToggleDebug switches the log level between debug and the configured
// level and returns the new level
func (s *Server) ToggleDebug() string {
	next := "debug"
	if s.logger.Level() == "debug" {
		next = s.config.Logging.Level
	}
	if err := s.logger.SetLevel(next); err != nil {
		s.logger.Warn("Invalid log level", zap.String("level", next), zap.Error(err))
	}
	level := s.logger.Level()
	s.logger.Info("Log level changed", zap.String("level", level))
	return level
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.cancel()
	if s.watching != nil {
		<-s.watching
	}

	s.previews.CloseAll()
	s.terminals.CloseAll()
	s.logger.Info("Closed sessions")

	// Sync logger before exit
	_ = s.logger.Sync()

	return nil
}

// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fakelens/fakelens/internal/config"
	"github.com/fakelens/fakelens/internal/detector"
	"github.com/fakelens/fakelens/internal/health"
	"github.com/fakelens/fakelens/internal/idgen"
	"github.com/fakelens/fakelens/internal/ledger"
	"github.com/fakelens/fakelens/internal/logging"
	"github.com/fakelens/fakelens/internal/metrics"
	"github.com/fakelens/fakelens/internal/profile"
	"github.com/fakelens/fakelens/internal/ratelimit"
	"github.com/fakelens/fakelens/internal/realtime"
	"github.com/fakelens/fakelens/internal/reports"
	"github.com/fakelens/fakelens/internal/security"
	"github.com/fakelens/fakelens/internal/traces"
	"github.com/fakelens/fakelens/internal/validation"
)

// Version is the API version reported on the info endpoint.
const Version = "1.0.0"

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	detector     *detector.Service
	ledger       *ledger.Ledger
	reports      *reports.Service
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB             // nil unless using Postgres
	sqlite       *ledger.SQLiteStore // nil unless using SQLite
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	reportSenderOverride reports.Sender

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDetector sets a custom detector service (for testing)
func WithDetector(d *detector.Service) Option {
	return func(s *Server) {
		s.detector = d
	}
}

// WithReportSender sets a custom report sender (for testing)
func WithReportSender(sender reports.Sender) Option {
	return func(s *Server) {
		s.reportSenderOverride = sender
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, "json"),
		healthReg: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Ledger storage: Postgres if DATABASE_URL is set, SQLite if
	// LEDGER_DB_PATH is set, in-memory otherwise.
	var store ledger.Store
	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		store = ledger.NewPostgresStore(db)
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			if err := db.PingContext(ctx); err != nil {
				return health.Fail("database", err.Error())
			}
			return health.OK("database")
		})
		s.logger.Info("using PostgreSQL ledger storage", "url", maskDSN(cfg.DatabaseURL))

	case cfg.LedgerDBPath != "":
		sqlite, err := ledger.OpenSQLite(cfg.LedgerDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger db: %w", err)
		}
		s.sqlite = sqlite
		store = sqlite
		s.logger.Info("using SQLite ledger storage", "path", cfg.LedgerDBPath)

	default:
		store = ledger.NewMemoryStore()
		s.logger.Info("using in-memory ledger storage")
	}
	s.ledger = ledger.New(store)
	s.healthReg.Register("ledger", func(ctx context.Context) health.Status {
		if _, err := s.ledger.Latest(ctx, 1); err != nil {
			return health.Fail("ledger", err.Error())
		}
		return health.OK("ledger")
	})

	// Scoring pipeline
	if s.detector == nil {
		s.detector = detector.New(detector.Config{
			TrainingSamples: cfg.TrainingSamples,
			Seed:            cfg.TrainingSeed,
			ModelPath:       cfg.ModelPath,
		})
	}
	s.healthReg.Register("model", func(ctx context.Context) health.Status {
		return health.Status{Name: "model", Healthy: true, Detail: s.detector.State().String()}
	})

	// Report dispatch
	if s.reports == nil {
		sender, err := s.buildReportSender(ctx)
		if err != nil {
			return nil, err
		}
		s.reports = reports.NewService(sender, s.logger)
	}

	// Realtime feed
	s.realtimeHub = realtime.NewHub(s.logger)

	// Router
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	if s.db != nil {
		metrics.StartDBStatsCollector(ctx, s.db, 15*time.Second)
	}

	return s, nil
}

func (s *Server) buildReportSender(ctx context.Context) (reports.Sender, error) {
	if s.reportSenderOverride != nil {
		return s.reportSenderOverride, nil
	}
	if s.cfg.ReportSender == "ses" {
		sender, err := reports.NewSESSender(ctx, s.cfg.AWSRegion, s.cfg.ReportFrom)
		if err != nil {
			return nil, fmt.Errorf("failed to create SES sender: %w", err)
		}
		s.logger.Info("report dispatch via SES", "region", s.cfg.AWSRegion)
		return sender, nil
	}
	s.logger.Info("report dispatch via log sender")
	return reports.NewLogSender(s.logger), nil
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(16)
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/", s.infoHandler)

	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	api := s.router.Group("/api")
	api.POST("/analyze", s.analyzeHandler)

	ledger.NewHandler(s.ledger, s.logger).RegisterRoutes(api)

	reportHandler := reports.NewHandler(s.reports, s.logger)
	reportHandler.OnGenerated(func(rep *reports.Report) {
		s.realtimeHub.BroadcastReport(realtime.ReportEvent{
			Platform: rep.Platform,
			Username: rep.Username,
			ReportID: rep.ReportID,
			Priority: rep.Priority,
		})
	})
	reportHandler.RegisterRoutes(api)
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Fake Account Detection API",
		"version": Version,
		"endpoints": []string{
			"/api/analyze",
			"/api/report",
			"/api/blockchain/records",
			"/api/stats",
		},
	})
}

// analyzeRequest is the analyze payload: platform plus the profile fields.
type analyzeRequest struct {
	Platform string `json:"platform"`
	profile.Record
}

func (s *Server) analyzeHandler(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be valid JSON",
		})
		return
	}

	platform := validation.SanitizePlatform(req.Platform)
	if errs := validation.Validate(
		validation.Required("platform", platform),
		validation.ValidPlatform("platform", platform),
		validation.Required("username", req.Username),
		validation.MaxLength("username", req.Username, validation.MaxUsernameLength),
		validation.MaxLength("bio", req.Bio, validation.MaxBioLength),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "analyze",
		traces.Platform(platform),
		traces.Username(req.Username),
	)
	defer span.End()

	result, err := s.detector.Analyze(ctx, req.Record)
	if err != nil {
		logging.L(ctx).Error("analysis failed", "error", err, "username", req.Username)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "analysis_failed",
			"message": "Analysis could not be completed",
		})
		return
	}

	span.SetAttributes(
		traces.RiskLevel(string(result.RiskLevel)),
		traces.FakeProbability(result.FakeProbability),
	)

	// Ledger write for medium and high risk accounts. A failed write is
	// reported in the response but does not fail the analysis.
	var blockchain gin.H
	if result.FakeProbability >= detector.RiskThresholdMedium {
		rec, err := s.ledger.Report(ctx, platform, req.Username, result.FakeProbability, result.Explanation)
		if err != nil {
			logging.L(ctx).Error("ledger write failed", "error", err, "username", req.Username)
			blockchain = gin.H{"success": false, "error": "ledger write failed"}
		} else {
			blockchain = gin.H{
				"success":      true,
				"tx_hash":      rec.TxHash,
				"block_number": rec.BlockNumber,
				"gas_used":     rec.GasUsed,
			}
			s.realtimeHub.BroadcastLedgerRecord(rec)
		}
	}

	s.realtimeHub.BroadcastAnalysis(realtime.AnalysisEvent{
		Platform:        platform,
		Username:        req.Username,
		RiskLevel:       string(result.RiskLevel),
		FakeProbability: result.FakeProbability,
	})

	logging.L(ctx).Info("analysis completed",
		"platform", platform,
		"username", req.Username,
		"risk_level", result.RiskLevel,
	)

	c.JSON(http.StatusOK, gin.H{
		"analysis":   result,
		"blockchain": blockchain,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// -----------------------------------------------------------------------------
// Health
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.healthReg.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		v := "healthy"
		if !st.Healthy {
			v = "unhealthy"
		}
		if st.Detail != "" {
			v = v + " (" + st.Detail + ")"
		}
		checks[st.Name] = v
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"version":   Version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"model":  s.detector.State().String(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"model":  s.detector.State().String(),
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)

	// Warm up the model before accepting traffic, or lazily on the first
	// analyze request.
	go func() {
		if s.cfg.TrainOnStart {
			s.logger.Info("training model before serving",
				"samples", s.cfg.TrainingSamples, "seed", s.cfg.TrainingSeed)
			if err := s.detector.Train(runCtx); err != nil {
				s.logger.Error("model training failed", "error", err)
				s.healthy.Store(false)
				errChan <- err
				return
			}
			s.logger.Info("model trained")
		}
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		s.shutdownQuiet()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	return s.shutdownQuiet()
}

func (s *Server) shutdownQuiet() error {
	// Cancel background goroutines (realtime hub, warm-up)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.logger.Error("ledger db close error", "error", err)
		} else {
			s.logger.Info("ledger db closed")
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

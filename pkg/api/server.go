// Package api provides the HTTP surface for novelforge (spec.md §6
// "HTTP surface (boundary, not core)"): the core exposes operations
// invoked by a router; this package is that router.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/novelforge/novelforge/pkg/blobstore"
	"github.com/novelforge/novelforge/pkg/config"
	"github.com/novelforge/novelforge/pkg/credit"
	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/library"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/orchestrator"
	"github.com/novelforge/novelforge/pkg/render"
	"github.com/novelforge/novelforge/pkg/session"
	"github.com/novelforge/novelforge/pkg/version"
)

// Deps wires every dependency NewServer needs. Built in
// cmd/novelforge/main.go once at startup.
type Deps struct {
	Config       *config.Config
	DB           *database.Client
	Sessions     *session.Store
	Credits      *credit.Ledger
	Orchestrator *orchestrator.Orchestrator
	Library      library.Config
	StatsCache   *library.StatsCache
	Backfiller   *library.Backfiller
	Blobs        *blobstore.Store
	Renderer     *render.Adapter
}

// Server is the HTTP API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg          *config.Config
	db           *database.Client
	sessions     *session.Store
	credits      *credit.Ledger
	orchestrator *orchestrator.Orchestrator
	libraryCfg   library.Config
	statsCache   *library.StatsCache
	backfiller   *library.Backfiller
	blobs        *blobstore.Store
	renderer     *render.Adapter
}

// NewServer creates a new API server with Echo v5.
func NewServer(deps Deps) *Server {
	e := echo.New()

	s := &Server{
		echo:         e,
		cfg:          deps.Config,
		db:           deps.DB,
		sessions:     deps.Sessions,
		credits:      deps.Credits,
		orchestrator: deps.Orchestrator,
		libraryCfg:   deps.Library,
		statsCache:   deps.StatsCache,
		backfiller:   deps.Backfiller,
		blobs:        deps.Blobs,
		renderer:     deps.Renderer,
	}

	e.Use(middleware.BodyLimit(2 * 1024 * 1024))
	e.Use(securityHeaders())
	e.Use(requestLogger())

	s.setupRoutes()
	return s
}

// setupRoutes registers all API routes (spec.md §4's operations).
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")

	v1.POST("/sessions", s.submitFormHandler)
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.DELETE("/sessions/:id", s.deleteSessionHandler)

	v1.POST("/sessions/:id/answers", s.submitAnswersHandler)
	v1.POST("/sessions/:id/draft/validate", s.validateDraftHandler)
	v1.POST("/sessions/:id/outline", s.generateOutlineHandler)
	v1.PUT("/sessions/:id/outline", s.updateOutlineHandler)

	v1.POST("/sessions/:id/generation/start", s.startGenerationHandler)
	v1.POST("/sessions/:id/generation/resume", s.resumeGenerationHandler)
	v1.POST("/sessions/:id/generation/cancel", s.cancelGenerationHandler)
	v1.GET("/sessions/:id/estimate", s.residualEstimateHandler)
	v1.GET("/sessions/:id/download", s.downloadPDFHandler)

	v1.GET("/library", s.listLibraryHandler)
	v1.GET("/library/stats", s.libraryStatsHandler)
	v1.GET("/library/stats/advanced", s.libraryAdvancedStatsHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.db.Pool)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, &HealthResponse{
			Status: "unhealthy", Version: version.Full(), Database: "unreachable",
		})
	}

	return c.JSON(http.StatusOK, &HealthResponse{
		Status: "healthy", Version: version.Full(), Database: dbHealth.Status,
	})
}

// renderPDF renders the given Session to PDF bytes via the Rendering
// boundary (spec.md §6 "HTTP surface (boundary, not core)").
func (s *Server) renderPDF(ctx context.Context, sess *model.Session) ([]byte, error) {
	return s.renderer.RenderPDF(ctx, sess)
}

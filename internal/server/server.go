package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marinesafe/safety-advisor/internal/auth"
	"github.com/marinesafe/safety-advisor/internal/chat"
	"github.com/marinesafe/safety-advisor/internal/export"
	"github.com/marinesafe/safety-advisor/internal/extract"
	"github.com/marinesafe/safety-advisor/internal/repository"
)

// Server carries the wired application services and exposes them over HTTP.
type Server struct {
	verifier  auth.Verifier
	incidents repository.IncidentRepository
	engine    *extract.Engine
	agent     *chat.Agent
	exporter  *export.Service
	logger    *slog.Logger

	frontendURL string
}

func New(
	verifier auth.Verifier,
	incidents repository.IncidentRepository,
	engine *extract.Engine,
	agent *chat.Agent,
	exporter *export.Service,
	frontendURL string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		verifier:    verifier,
		incidents:   incidents,
		engine:      engine,
		agent:       agent,
		exporter:    exporter,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware(s.frontendURL))

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)

	protected := r.Group("")
	protected.Use(AuthMiddleware(s.verifier, s.logger))
	{
		protected.GET("/me", s.handleMe)

		protected.POST("/incidents/upload", s.handleIncidentUpload)
		protected.POST("/ptw/upload", s.handlePTWUpload)

		protected.POST("/incidents", s.handleIncidentCreate)
		protected.GET("/incidents", s.handleIncidentList)
		protected.GET("/incidents/similar", s.handleIncidentSimilar)
		protected.GET("/incidents/export", s.handleIncidentExport)
		protected.GET("/incidents/:id", s.handleIncidentGet)

		protected.POST("/chat", s.handleChat)
	}

	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SafetyAdvisor API is running"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

func (s *Server) handleMe(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authentication token"})
		return
	}
	c.JSON(http.StatusOK, user)
}

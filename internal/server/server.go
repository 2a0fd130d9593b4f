// Package server exposes the tutor service over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/abhisek/studypal/internal/logger"
	"github.com/abhisek/studypal/internal/tutor"
	"github.com/gin-gonic/gin"
)

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures the HTTP surface.
type Config struct {
	CORSOrigins []string
}

// Server holds the gin engine and its dependencies.
type Server struct {
	Engine *gin.Engine
	svc    *tutor.Service
	health Pinger
	log    *logger.Logger
}

// New builds the router.
func New(svc *tutor.Service, health Pinger, cfg Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{Engine: gin.New(), svc: svc, health: health, log: log.With("component", "http")}

	r := s.Engine
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(corsMiddleware(cfg.CORSOrigins))
	}

	r.GET("/healthz", s.healthz)

	api := r.Group("/api", requireUser())
	{
		api.POST("/explain", capability(s, svc.Explain))
		api.POST("/quiz", capability(s, svc.Quiz))
		api.POST("/flashcards", capability(s, svc.Flashcards))
		api.POST("/exam-plan", capability(s, svc.ExamPlan))
		api.POST("/grade", capability(s, svc.Grade))
		api.POST("/progress", capability(s, svc.Progress))
		api.POST("/speech", capability(s, svc.Speech))
		api.POST("/companion", capability(s, svc.Companion))
		api.POST("/topics", capability(s, svc.Topics))

		api.GET("/profile", s.getProfile)
		api.PUT("/profile", s.putProfile)

		api.GET("/history", s.listHistory)
		api.GET("/history/:id", s.getHistory)
		api.DELETE("/history/:id", s.deleteHistory)

		api.POST("/orders", s.createOrder)
		api.POST("/orders/verify", s.verifyOrder)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.Engine
}

// capability adapts a tutor method to a JSON-in, JSON-out handler.
func capability[In, Out any](s *Server, run func(context.Context, string, In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_input", "malformed JSON body: "+err.Error())
			return
		}
		out, err := run(c.Request.Context(), userID(c), in)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getProfile(c *gin.Context) {
	acct, err := s.svc.Profile(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (s *Server) putProfile(c *gin.Context) {
	var u tutor.ProfileUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "malformed JSON body: "+err.Error())
		return
	}
	p, err := s.svc.UpdateProfile(c.Request.Context(), userID(c), u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) listHistory(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	items, err := s.svc.ListHistory(c.Request.Context(), userID(c), c.Query("flow"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) getHistory(c *gin.Context) {
	item, err := s.svc.GetHistoryItem(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) deleteHistory(c *gin.Context) {
	if err := s.svc.DeleteHistoryItem(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createOrder(c *gin.Context) {
	checkout, err := s.svc.CreateOrder(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (s *Server) verifyOrder(c *gin.Context) {
	var req tutor.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "malformed JSON body: "+err.Error())
		return
	}
	order, err := s.svc.VerifyOrder(c.Request.Context(), userID(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "plan": "premium"})
}

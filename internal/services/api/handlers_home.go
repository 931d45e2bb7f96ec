package api

import (
	"net/http"

	"github.com/NordCoder/tifi/internal/obs"
	"github.com/gin-gonic/gin"
)

func (s *Server) home(c *gin.Context) {
	success(c, http.StatusOK, "Welcome to API", nil)
}

func (s *Server) requestStats(c *gin.Context) {
	success(c, http.StatusOK, "Endpoints request retreived successfully", gin.H{
		"request_counts": s.counter.Snapshot(),
	})
}

func (s *Server) healthz(c *gin.Context) {
	if name, err := obs.RunChecks(c.Request.Context(), s.checks); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, name+" unavailable")
		return
	}
	success(c, http.StatusOK, "ok", nil)
}

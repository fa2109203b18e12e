package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/servicemon/agent/internal/domain"
)

type Handler struct {
	worklist WorklistSource
	status   StatusSource
}

func NewHandler(worklist WorklistSource, status StatusSource) *Handler {
	return &Handler{worklist: worklist, status: status}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type statusResponse struct {
	OK bool `json:"ok"`
	domain.AgentStatus
	Services []domain.ServiceTarget `json:"services"`
}

// Status reports the agent id, last heartbeat time, current worklist, and
// the most recent result per (host, port).
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, statusResponse{
		OK:          true,
		AgentStatus: h.status.View(),
		Services:    h.worklist.Snapshot(),
	})
}

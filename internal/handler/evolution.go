package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"genehub/internal/evolution"
	"genehub/internal/repository"
)

type EvolutionHandler struct {
	Repo  repository.Repository
	Cycle *evolution.Cycle
}

func (h *EvolutionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/evolution")
	group.GET("/state", h.state)
	group.POST("/run", h.run)
}

// @Summary Persisted pool state plus whether a cycle is running now
// @Tags evolution
// @Success 200 {object} map[string]any
// @Router /api/v1/evolution/state [get]
func (h *EvolutionHandler) state(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	state, err := h.Repo.GetPoolState(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	running := h.Cycle != nil && h.Cycle.Running()
	Ok(c, gin.H{"state": state, "running": running}, nil)
}

// @Summary Trigger one evolution cycle
// @Tags evolution
// @Success 200 {object} map[string]any
// @Router /api/v1/evolution/run [post]
func (h *EvolutionHandler) run(c *gin.Context) {
	if h.Cycle == nil {
		Error(c, http.StatusInternalServerError, "cycle unavailable", nil)
		return
	}
	summary, err := h.Cycle.Run(c.Request.Context())
	if err != nil {
		if errors.Is(err, evolution.ErrCycleInProgress) {
			Error(c, http.StatusConflict, "cycle already running", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, summary, nil)
}

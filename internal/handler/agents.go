package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"genehub/internal/auth"
	"genehub/internal/registry"
	"genehub/internal/repository"
)

type AgentHandler struct {
	Registry *registry.Service
	Repo     repository.Repository
	// Auth issues tokens on registration when set; nil when auth is disabled.
	Auth *auth.Service
}

func (h *AgentHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/agents")
	group.POST("/register", h.registerAgent)
	group.GET("/leaderboard", h.leaderboard)
	group.GET("/:id", h.getAgent)
}

type registerAgentRequest struct {
	AgentID string `json:"agentId"`
}

// @Summary Register an agent, issuing a bearer token when auth is enabled
// @Tags agents
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/agents/register [post]
func (h *AgentHandler) registerAgent(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	var req registerAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		Error(c, http.StatusBadRequest, "agentId required", nil)
		return
	}
	rep, err := h.Registry.RegisterAgent(c.Request.Context(), agentID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	payload := gin.H{"agent": rep}
	if h.Auth != nil {
		token, expiresAt, err := h.Auth.Issue(c.Request.Context(), agentID)
		if err != nil {
			Error(c, http.StatusInternalServerError, "issue token: "+err.Error(), nil)
			return
		}
		payload["token"] = token
		payload["tokenExpiresAt"] = expiresAt.UTC().Format(time.RFC3339)
	}
	Ok(c, payload, nil)
}

// @Summary Reputation leaderboard
// @Tags agents
// @Success 200 {object} map[string]any
// @Router /api/v1/agents/leaderboard [get]
func (h *AgentHandler) leaderboard(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	items, err := h.Registry.Leaderboard(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *AgentHandler) getAgent(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	rep, err := h.Repo.GetAgentReputation(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if rep == nil {
		Error(c, http.StatusNotFound, "agent not found", nil)
		return
	}
	Ok(c, rep, nil)
}

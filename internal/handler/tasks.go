package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"genehub/internal/auth"
	"genehub/internal/registry"
	"genehub/internal/repository"
)

type TaskHandler struct {
	Registry    *registry.Service
	Coordinator *registry.Coordinator
}

func (h *TaskHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/tasks")
	group.GET("", h.listTasks)
	group.POST("", h.createTask)
	group.GET("/:id", h.getTask)
	group.GET("/:id/events", h.taskEvents)
	group.POST("/:id/claim", h.claimTask)
	group.POST("/:id/submit", h.submitTask)
	group.POST("/:id/resolve", h.resolveTask)
}

// @Summary List bounty tasks
// @Tags tasks
// @Param status query string false "open|claimed|submitted|completed|failed|expired"
// @Success 200 {object} map[string]any
// @Router /api/v1/tasks [get]
func (h *TaskHandler) listTasks(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	orderBy := parseOrder(c.Query("sort_by"), map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"reward":     "reward",
	})
	asc := strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")

	items, err := h.Registry.List(c.Request.Context(), repository.ListBountiesParams{
		Limit:     limit,
		Offset:    offset,
		Status:    strQueryPtr(c, "status"),
		Type:      strQueryPtr(c, "type"),
		ClaimedBy: strQueryPtr(c, "claimed_by"),
		OrderBy:   orderBy,
		Asc:       boolPtr(asc),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

type createTaskRequest struct {
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	Requirements    json.RawMessage `json:"requirements"`
	Reward          int64           `json:"reward"`
	MinReputation   int64           `json:"minReputation"`
	PublishDeadline *string         `json:"publishDeadline"`
}

// @Summary Publish a bounty task
// @Tags tasks
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/tasks [post]
func (h *TaskHandler) createTask(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	var deadline *time.Time
	if req.PublishDeadline != nil && strings.TrimSpace(*req.PublishDeadline) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.PublishDeadline))
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid publishDeadline", nil)
			return
		}
		t := ts.UTC()
		deadline = &t
	}
	b, err := h.Registry.Create(c.Request.Context(), registry.CreateBountyInput{
		Title:           req.Title,
		Type:            req.Type,
		Requirements:    req.Requirements,
		Reward:          req.Reward,
		MinReputation:   req.MinReputation,
		PublishDeadline: deadline,
		Actor:           actor(c),
	})
	if err != nil {
		if errors.Is(err, registry.ErrPolicyViolation) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, b, nil)
}

func (h *TaskHandler) getTask(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	b, err := h.Registry.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			Error(c, http.StatusNotFound, "task not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, b, nil)
}

func (h *TaskHandler) taskEvents(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	items, err := h.Registry.Events(c.Request.Context(), id, intQuery(c, "limit", 100))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type claimTaskRequest struct {
	AgentID string `json:"agentId"`
}

// @Summary Claim a task
// @Tags tasks
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/tasks/{id}/claim [post]
func (h *TaskHandler) claimTask(c *gin.Context) {
	if h.Coordinator == nil {
		Error(c, http.StatusInternalServerError, "coordinator unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req claimTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		Error(c, http.StatusBadRequest, "agentId required", nil)
		return
	}
	if !actorMatches(c, agentID) {
		Error(c, http.StatusForbidden, "token subject does not match agentId", nil)
		return
	}
	res, err := h.Coordinator.Claim(c.Request.Context(), id, agentID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	// Losing a claim race is a normal outcome: the reason code, not the HTTP
	// status, tells the agent whether to move on.
	payload := gin.H{"ok": res.Won}
	if res.Reason != "" {
		payload["reason"] = res.Reason
	}
	if res.ClaimExpiresAt != nil {
		payload["claimExpiresAt"] = res.ClaimExpiresAt.UTC().Format(time.RFC3339)
	}
	Ok(c, payload, nil)
}

type submitTaskRequest struct {
	AgentID string `json:"agentId"`
	GeneID  string `json:"geneId"`
}

// @Summary Submit a gene against a claimed task
// @Tags tasks
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/tasks/{id}/submit [post]
func (h *TaskHandler) submitTask(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req submitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	agentID := strings.TrimSpace(req.AgentID)
	geneID := strings.TrimSpace(req.GeneID)
	if agentID == "" || geneID == "" {
		Error(c, http.StatusBadRequest, "agentId and geneId required", nil)
		return
	}
	if !actorMatches(c, agentID) {
		Error(c, http.StatusForbidden, "token subject does not match agentId", nil)
		return
	}
	b, err := h.Registry.Submit(c.Request.Context(), id, agentID, geneID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			Error(c, http.StatusNotFound, "task not found", nil)
		case errors.Is(err, registry.ErrPolicyViolation):
			Error(c, http.StatusConflict, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	Ok(c, gin.H{"ok": true, "task": b}, nil)
}

type resolveTaskRequest struct {
	// Accept forces the outcome; omit it to re-run the validation gate against
	// the task's requirements.
	Accept *bool `json:"accept"`
}

// @Summary Resolve a submitted task
// @Tags tasks
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/tasks/{id}/resolve [post]
func (h *TaskHandler) resolveTask(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusInternalServerError, "registry unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	var req resolveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	res, err := h.Registry.Resolve(c.Request.Context(), id, registry.ResolveInput{
		Actor:  actor(c),
		Accept: req.Accept,
	})
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			Error(c, http.StatusNotFound, "task not found", nil)
		case errors.Is(err, registry.ErrPolicyViolation):
			Error(c, http.StatusConflict, err.Error(), nil)
		default:
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return
	}
	Ok(c, gin.H{"accepted": res.Accepted, "task": res.Bounty, "outcome": res.Outcome}, nil)
}

// actor is the authenticated agent when auth is on, "api" otherwise.
func actor(c *gin.Context) string {
	if agent, ok := auth.AgentFromContext(c); ok {
		return agent
	}
	return "api"
}

// actorMatches enforces token subject == body agent id. With auth disabled no
// claims are set and every body is accepted.
func actorMatches(c *gin.Context, agentID string) bool {
	agent, ok := auth.AgentFromContext(c)
	if !ok {
		return true
	}
	return agent == agentID
}

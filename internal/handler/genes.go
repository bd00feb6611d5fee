package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"genehub/internal/events"
	"genehub/internal/models"
	"genehub/internal/repository"
)

type GeneHandler struct {
	Repo repository.Repository
	Hub  *events.Hub
}

func (h *GeneHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/genes")
	group.GET("", h.listGenes)
	group.POST("", h.createGene)
	group.GET("/:id", h.getGene)
	group.GET("/:id/history", h.geneHistory)
}

// @Summary List genes
// @Tags genes
// @Param status query string false "active|archived (default active)"
// @Success 200 {object} map[string]any
// @Router /api/v1/genes [get]
func (h *GeneHandler) listGenes(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	status := strQueryPtr(c, "status")
	if status == nil {
		active := models.GeneStatusActive
		status = &active
	}
	var passed *bool
	if v := strings.TrimSpace(c.Query("passed")); v != "" {
		b := strings.EqualFold(v, "true") || v == "1"
		passed = &b
	}
	var generation *int
	if v := intQuery(c, "generation", -1); v >= 0 {
		generation = &v
	}
	orderBy := parseOrder(c.Query("sort_by"), map[string]string{
		"created_at": "created_at",
		"generation": "generation",
	})

	items, err := h.Repo.ListGenes(c.Request.Context(), repository.ListGenesParams{
		Limit:      limit,
		Offset:     offset,
		Status:     status,
		Passed:     passed,
		Generation: generation,
		OrderBy:    orderBy,
		Asc:        boolPtr(strings.EqualFold(strings.TrimSpace(c.Query("order")), "asc")),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

type createGeneRequest struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Formula    string             `json:"formula"`
	Parameters map[string]float64 `json:"parameters"`
	ParentIDs  []string           `json:"parentIds"`
}

// @Summary Register a gene
// @Tags genes
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/genes [post]
func (h *GeneHandler) createGene(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createGeneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	name := strings.TrimSpace(req.Name)
	formula := strings.TrimSpace(req.Formula)
	if name == "" || formula == "" {
		Error(c, http.StatusBadRequest, "name and formula required", nil)
		return
	}

	// Lineage carries either no parents (a root at generation 0) or exactly
	// two distinct existing parents; the child generation is derived here,
	// never taken from the caller.
	generation := 0
	switch len(req.ParentIDs) {
	case 0:
	case 2:
		if req.ParentIDs[0] == req.ParentIDs[1] {
			Error(c, http.StatusBadRequest, "parents must be distinct", nil)
			return
		}
		for _, pid := range req.ParentIDs {
			parent, err := h.Repo.GetGene(c.Request.Context(), pid)
			if err != nil {
				Error(c, http.StatusBadGateway, err.Error(), nil)
				return
			}
			if parent == nil {
				Error(c, http.StatusBadRequest, "parent gene not found: "+pid, nil)
				return
			}
			if parent.Generation+1 > generation {
				generation = parent.Generation + 1
			}
		}
	default:
		Error(c, http.StatusBadRequest, "parentIds must hold 0 or 2 ids", nil)
		return
	}

	params := req.Parameters
	if params == nil {
		params = map[string]float64{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid parameters", nil)
		return
	}
	parentsJSON, err := json.Marshal(req.ParentIDs)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid parentIds", nil)
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	g := &models.Gene{
		ID:         id,
		Name:       name,
		Formula:    formula,
		Parameters: datatypes.JSON(paramsJSON),
		Generation: generation,
		ParentIDs:  datatypes.JSON(parentsJSON),
		Status:     models.GeneStatusActive,
	}
	if err := h.Repo.PutGene(c.Request.Context(), g); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.Hub.Publish(events.Event{
		Type:     events.TypeGeneAdmitted,
		EntityID: g.ID,
		Actor:    actor(c),
		Payload:  map[string]any{"generation": g.Generation},
	})
	Ok(c, gin.H{"ok": true, "geneId": g.ID}, nil)
}

// @Summary Get a gene with its latest backtest history
// @Tags genes
// @Success 200 {object} map[string]any
// @Router /api/v1/genes/{id} [get]
func (h *GeneHandler) getGene(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	g, err := h.Repo.GetGene(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if g == nil {
		Error(c, http.StatusNotFound, "gene not found", nil)
		return
	}
	history, err := h.Repo.RecentBacktestRecords(c.Request.Context(), id, intQuery(c, "history", 10))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"gene": g, "history": history}, nil)
}

func (h *GeneHandler) geneHistory(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	history, err := h.Repo.ListBacktestRecords(c.Request.Context(), id, intQuery(c, "limit", 50))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, history, nil)
}

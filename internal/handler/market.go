package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"genehub/internal/events"
	"genehub/internal/models"
	"genehub/internal/repository"
)

// MarketHandler serves the strategy marketplace: listings plus an append-only
// order log. No claim semantics apply here.
type MarketHandler struct {
	Repo repository.Repository
	Hub  *events.Hub
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/market")
	group.GET("/listings", h.listListings)
	group.POST("/listings", h.createListing)
	group.GET("/listings/:id", h.getListing)
	group.GET("/listings/:id/orders", h.listingOrders)
	group.POST("/listings/:id/delist", h.delist)
	group.POST("/orders", h.placeOrder)
}

// @Summary List marketplace listings
// @Tags market
// @Success 200 {object} map[string]any
// @Router /api/v1/market/listings [get]
func (h *MarketHandler) listListings(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListListings(c.Request.Context(), repository.ListListingsParams{
		Limit:    limit,
		Offset:   offset,
		Status:   strQueryPtr(c, "status"),
		GeneID:   strQueryPtr(c, "gene_id"),
		SellerID: strQueryPtr(c, "seller_id"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

type createListingRequest struct {
	GeneID   string `json:"geneId"`
	SellerID string `json:"sellerId"`
	Price    string `json:"price"`
}

// @Summary Publish a listing
// @Tags market
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/market/listings [post]
func (h *MarketHandler) createListing(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	geneID := strings.TrimSpace(req.GeneID)
	sellerID := strings.TrimSpace(req.SellerID)
	if geneID == "" || sellerID == "" {
		Error(c, http.StatusBadRequest, "geneId and sellerId required", nil)
		return
	}
	if !actorMatches(c, sellerID) {
		Error(c, http.StatusForbidden, "token subject does not match sellerId", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() || price.IsZero() {
		Error(c, http.StatusBadRequest, "price must be a positive decimal", nil)
		return
	}
	g, err := h.Repo.GetGene(c.Request.Context(), geneID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if g == nil {
		Error(c, http.StatusBadRequest, "gene not found: "+geneID, nil)
		return
	}
	l := &models.Listing{
		ID:       uuid.NewString(),
		GeneID:   geneID,
		SellerID: sellerID,
		Price:    price,
		Status:   models.ListingStatusActive,
	}
	if err := h.Repo.CreateListing(c.Request.Context(), l); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, l, nil)
}

func (h *MarketHandler) getListing(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	l, err := h.Repo.GetListing(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if l == nil {
		Error(c, http.StatusNotFound, "listing not found", nil)
		return
	}
	Ok(c, l, nil)
}

func (h *MarketHandler) delist(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	moved, err := h.Repo.SetListingStatus(c.Request.Context(), id, models.ListingStatusDelisted)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if !moved {
		Error(c, http.StatusNotFound, "listing not found or already delisted", nil)
		return
	}
	Ok(c, gin.H{"id": id, "status": models.ListingStatusDelisted}, nil)
}

type placeOrderRequest struct {
	ListingID string `json:"listingId"`
	TraderID  string `json:"traderId"`
	Price     string `json:"price"`
}

// @Summary Append an order against an active listing
// @Tags market
// @Accept json
// @Success 200 {object} map[string]any
// @Router /api/v1/market/orders [post]
func (h *MarketHandler) placeOrder(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	listingID := strings.TrimSpace(req.ListingID)
	traderID := strings.TrimSpace(req.TraderID)
	if listingID == "" || traderID == "" {
		Error(c, http.StatusBadRequest, "listingId and traderId required", nil)
		return
	}
	if !actorMatches(c, traderID) {
		Error(c, http.StatusForbidden, "token subject does not match traderId", nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() || price.IsZero() {
		Error(c, http.StatusBadRequest, "price must be a positive decimal", nil)
		return
	}
	l, err := h.Repo.GetListing(c.Request.Context(), listingID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if l == nil {
		Error(c, http.StatusNotFound, "listing not found", nil)
		return
	}
	if l.Status != models.ListingStatusActive {
		Error(c, http.StatusConflict, "listing not active", map[string]any{"status": l.Status})
		return
	}
	o := &models.Order{
		ListingID: listingID,
		TraderID:  traderID,
		Price:     price,
	}
	if err := h.Repo.AppendOrder(c.Request.Context(), o); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	h.Hub.Publish(events.Event{
		Type:     events.TypeOrderPlaced,
		EntityID: listingID,
		Actor:    traderID,
		Payload:  map[string]any{"price": price.String()},
	})
	Ok(c, o, nil)
}

func (h *MarketHandler) listingOrders(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return
	}
	items, err := h.Repo.ListOrdersByListing(c.Request.Context(), id, intQuery(c, "limit", 100))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

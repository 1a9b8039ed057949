package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"winery-tank-backend/internal/model"
	"winery-tank-backend/internal/mw"
)

type addShipmentRequest struct {
	Supplier string  `json:"supplier" binding:"required,max=256"`
	Variety  string  `json:"variety" binding:"required,max=128"`
	WeightKg float64 `json:"weightKg" binding:"required,gt=0"`
}

// ListShipments handles GET /api/shipments.
func (h *Handler) ListShipments(c *gin.Context) {
	shipments, err := h.store.ListShipments(c.Request.Context(), mw.ClientID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	if shipments == nil {
		shipments = []model.Shipment{}
	}
	c.JSON(http.StatusOK, gin.H{"shipments": shipments})
}

// AddShipment handles POST /api/shipments.
func (h *Handler) AddShipment(c *gin.Context) {
	var req addShipmentRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	shipment := model.Shipment{
		ClientID:  mw.ClientID(c),
		Supplier:  req.Supplier,
		Variety:   req.Variety,
		WeightKg:  req.WeightKg,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.AddShipment(c.Request.Context(), &shipment); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

// ClearShipments handles DELETE /api/shipments.
func (h *Handler) ClearShipments(c *gin.Context) {
	n, err := h.store.ClearShipments(c.Request.Context(), mw.ClientID(c))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

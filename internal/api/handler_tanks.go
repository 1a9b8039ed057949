package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"winery-tank-backend/internal/deposits"
	"winery-tank-backend/internal/log"
	"winery-tank-backend/internal/mw"
	"winery-tank-backend/internal/tank"
)

type tanksResponse struct {
	Tanks []tank.View `json:"tanks"`
	Stale bool        `json:"stale"`
}

// ListTanks handles GET /api/tanks. Every call refreshes the list from the
// winery backend; when that fails the previous list is served as stale.
func (h *Handler) ListTanks(c *gin.Context) {
	views, err := h.tanks.Refresh(c.Request.Context(), mw.BearerToken(c))
	if errors.Is(err, deposits.ErrUnauthorized) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "winery backend rejected the token"})
		return
	}
	c.JSON(http.StatusOK, tanksResponse{Tanks: views, Stale: err != nil})
}

// GetTank handles GET /api/tanks/:deposit_id.
func (h *Handler) GetTank(c *gin.Context) {
	v, ok := h.lookupTank(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

// OpenTank handles POST /api/tanks/:deposit_id/open.
func (h *Handler) OpenTank(c *gin.Context) {
	v, ok := h.lookupTank(c)
	if !ok {
		return
	}
	target, err := h.navigator.Open(c.Request.Context(), mw.ClientID(c), v)
	if err != nil {
		log.Error(c.Request.Context(), "failed to open tank", log.Deposit(v.DepositID), log.Err(err))
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

type actionItem struct {
	Action tank.Action  `json:"action"`
	Label  string       `json:"label"`
	Route  string       `json:"route"`
	Target *tank.Target `json:"target,omitempty"`
}

// ListActions handles GET /api/actions, the static catalog of the empty tank menu.
func (h *Handler) ListActions(c *gin.Context) {
	items := make([]actionItem, 0, len(tank.Actions()))
	for _, a := range tank.Actions() {
		items = append(items, actionItem{Action: a, Label: a.Label(), Route: a.RouteTemplate()})
	}
	c.JSON(http.StatusOK, gin.H{"actions": items})
}

// GetTankActions handles GET /api/tanks/:deposit_id/actions.
func (h *Handler) GetTankActions(c *gin.Context) {
	v, ok := h.lookupTank(c)
	if !ok {
		return
	}
	if v.State == tank.StateInUse {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "tank is in use"})
		return
	}

	items := make([]actionItem, 0, len(tank.Actions()))
	for _, a := range tank.Actions() {
		target := tank.Route(v, tank.RunAction(a))
		items = append(items, actionItem{Action: a, Label: a.Label(), Route: a.RouteTemplate(), Target: &target})
	}
	c.JSON(http.StatusOK, gin.H{
		"depositId": v.DepositID,
		"title":     v.Title,
		"actions":   items,
	})
}

// RunTankAction handles POST /api/tanks/:deposit_id/actions/:action.
func (h *Handler) RunTankAction(c *gin.Context) {
	a, err := tank.ParseAction(c.Param("action"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	v, ok := h.lookupTank(c)
	if !ok {
		return
	}
	if v.State == tank.StateInUse {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "tank is in use"})
		return
	}
	c.JSON(http.StatusOK, tank.Route(v, tank.RunAction(a)))
}

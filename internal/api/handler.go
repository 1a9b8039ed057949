package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"winery-tank-backend/internal/store"
	"winery-tank-backend/internal/tank"
)

// TankBoard is the part of the deposits service the handlers depend on.
type TankBoard interface {
	Refresh(ctx context.Context, token string) ([]tank.View, error)
	Views() []tank.View
	View(depositID int64) (tank.View, bool)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	tanks     TankBoard
	navigator *tank.Navigator
	store     store.Store
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(tanks TankBoard, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		tanks:     tanks,
		navigator: tank.NewNavigator(s),
		store:     s,
		webpush:   webpushOptions,
	}
}

// bind decodes the request with b and writes a 400 response when it is
// invalid. Validation failures are reported per field.
func bind(c *gin.Context, req any, b binding.Binding) bool {
	switch err := c.ShouldBindWith(req, b).(type) {
	case nil:
		return true
	case *validator.InvalidValidationError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case validator.ValidationErrors:
		fields := make(map[string][]string)
		for _, ferr := range err {
			fields[ferr.Field()] = append(fields[ferr.Field()], ferr.Error())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	}
	return false
}

// lookupTank resolves the :deposit_id parameter against the current tank
// list, writing the error response itself when it fails.
func (h *Handler) lookupTank(c *gin.Context) (tank.View, bool) {
	id, err := strconv.ParseInt(c.Param("deposit_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid deposit ID"})
		return tank.View{}, false
	}
	v, ok := h.tanks.View(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "tank not found"})
		return tank.View{}, false
	}
	return v, true
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

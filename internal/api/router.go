package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"winery-tank-backend/config"
	"winery-tank-backend/internal/mw"
	"winery-tank-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, tanks TankBoard, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(), gin.Recovery())

	handler := NewHandler(tanks, s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Only responses that never change while the process runs are cached.
	// The tank list is refreshed on every request and must not be.
	ttl := cfg.CacheTTL()
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	clientID := mw.RequireClientID()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/tanks", handler.ListTanks)
		api.GET("/tanks/:deposit_id", handler.GetTank)
		api.POST("/tanks/:deposit_id/open", clientID, handler.OpenTank)
		api.GET("/tanks/:deposit_id/actions", handler.GetTankActions)
		api.POST("/tanks/:deposit_id/actions/:action", handler.RunTankAction)
		api.GET("/actions", caching, handler.ListActions)

		api.GET("/shipments", clientID, handler.ListShipments)
		api.POST("/shipments", clientID, handler.AddShipment)
		api.DELETE("/shipments", clientID, handler.ClearShipments)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
	}

	return r
}

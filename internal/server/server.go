package server

import (
	"fmt"

	"MarketScraper/internal/app"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates a configured Gin engine with all routes. Every route is
// public; the CORS middleware exists for browser frontends consuming the API.
func NewRouter(a *app.App) *gin.Engine {
	gin.SetMode(a.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(cors())

	r.GET("/health", healthHandler())

	r.POST("/scrape", scrapeHandler(a))
	r.GET("/products", productsHandler(a))
	r.GET("/products.csv", productsCSVHandler(a))
	r.GET("/products/:asin/history", historyHandler(a))

	return r
}

// Start runs the API server until it fails or the process ends.
func Start(a *app.App) error {
	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	zap.L().Info("starting API server", zap.String("addr", addr))
	return NewRouter(a).Run(addr)
}

// cors allows any origin; the API carries no credentials.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

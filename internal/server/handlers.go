package server

import (
	"errors"
	"net/http"
	"strconv"

	"MarketScraper/internal/app"
	"MarketScraper/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// scrapeHandler returns the handler for POST /scrape. Malformed requests
// are rejected before the pipeline runs; a pipeline failure maps to 502, a
// persistence failure to 500.
func scrapeHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		resp, err := a.RunScrape(req)
		if err != nil {
			zap.L().Error("scrape request failed", zap.Error(err))
			status := http.StatusInternalServerError
			if errors.Is(err, app.ErrUpstream) {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"detail": "Scrape failed: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// productsHandler returns the handler for GET /products.
func productsHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := parseFilters(c, 50, 200)
		items, total, err := a.Repo.ListProducts(filters)
		if err != nil {
			zap.L().Error("failed to list products", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list products"})
			return
		}
		c.JSON(http.StatusOK, models.ProductsResponse{
			Page:     filters.Page,
			PageSize: filters.PageSize,
			Total:    total,
			Items:    items,
		})
	}
}

// productsCSVHandler returns the handler for GET /products.csv. It runs the
// same filter pipeline with a larger page-size bound and responds with flat
// text.
func productsCSVHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := parseFilters(c, 1000, 5000)
		text, err := a.Repo.ExportCSV(filters)
		if err != nil {
			zap.L().Error("failed to export products", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to export products"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
	}
}

// historyHandler returns the handler for GET /products/:asin/history.
func historyHandler(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		asin := c.Param("asin")
		points, err := a.Repo.GetHistory(asin, 500)
		if err != nil {
			zap.L().Error("failed to load price history", zap.String("asin", asin), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load price history"})
			return
		}
		if points == nil {
			points = []models.PriceHistoryEntry{}
		}
		c.JSON(http.StatusOK, models.HistoryResponse{
			ASIN:   asin,
			Count:  len(points),
			Points: points,
		})
	}
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// parseFilters reads the shared filter/sort/pagination query parameters.
// The page size is clamped to [1, maxSize] with the given default.
func parseFilters(c *gin.Context, defaultSize, maxSize int) models.ProductFilters {
	filters := models.ProductFilters{
		Query:   c.Query("q"),
		OrderBy: c.DefaultQuery("order_by", "created_at"),
		Order:   c.DefaultQuery("order", "desc"),
	}
	if v, err := strconv.ParseFloat(c.Query("min_rating"), 64); err == nil {
		filters.MinRating = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil {
		filters.MaxPrice = &v
	}

	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if filters.Page < 1 {
		filters.Page = 1
	}
	filters.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	if filters.PageSize < 1 {
		filters.PageSize = defaultSize
	}
	if filters.PageSize > maxSize {
		filters.PageSize = maxSize
	}
	return filters
}

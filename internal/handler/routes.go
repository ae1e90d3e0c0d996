package handler

import (
	"github.com/dafibh/fintrack/fintrack-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Handlers groups the HTTP handlers served under /api/v1
type Handlers struct {
	Category    *CategoryHandler
	Transaction *TransactionHandler
	Report      *ReportHandler
	Dashboard   *DashboardHandler
	WebSocket   *WebSocketHandler
}

// RegisterRoutes sets up all API routes. authMiddleware and rateLimiter may
// be nil, in which case the API is served without them.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// API docs
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", ServeOpenAPI3Spec)

	// WebSocket authenticates through its token query parameter
	e.GET("/ws", h.WebSocket.HandleWS)

	// API version 1
	api := e.Group("/api/v1")
	if rateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(rateLimiter))
	}
	if authMiddleware != nil {
		api.Use(authMiddleware.Authenticate())
	}

	// Category routes
	categories := api.Group("/categories")
	categories.POST("", h.Category.CreateCategory)
	categories.GET("", h.Category.GetCategories)
	categories.GET("/:id", h.Category.GetCategory)
	categories.PUT("/:id", h.Category.UpdateCategory)
	categories.DELETE("/:id", h.Category.DeleteCategory)
	categories.GET("/:id/can-delete", h.Category.CanDeleteCategory)

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/search", h.Transaction.SearchTransactions)
	transactions.GET("/lookup", h.Transaction.LookupTransaction)
	transactions.POST("/import", h.Transaction.ImportTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)
	transactions.PUT("/:id/receipt", h.Transaction.UploadReceipt)
	transactions.GET("/:id/receipt", h.Transaction.GetReceipt)

	// Report routes
	reports := api.Group("/reports")
	reports.GET("/balance", h.Report.GetBalance)
	reports.GET("/months/:year/:month", h.Report.GetMonth)
	reports.GET("/period", h.Report.GetPeriod)
	reports.GET("/categories", h.Report.GetCategoryReport)
	reports.GET("/categories/export", h.Report.ExportCategoryReport)
	reports.POST("/categories/archive", h.Report.ArchiveCategoryReport)

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.GET("/summary", h.Dashboard.GetSummary)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
	now              func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		now:              time.Now,
	}
}

// DashboardSummaryResponse represents the dashboard summary API response
type DashboardSummaryResponse struct {
	Year           int                     `json:"year"`
	Month          int                     `json:"month"`
	CompanyBalance string                  `json:"companyBalance"`
	MonthProfit    string                  `json:"monthProfit"`
	Categories     []CategoryTotalResponse `json:"categories"`
}

// GetSummary godoc
// @Summary Get dashboard summary
// @Description Company balance, month profit and the month's category totals. Defaults to the current month.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} DashboardSummaryResponse
// @Failure 400 {object} ProblemDetails
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	// Parse optional year/month params (default to current)
	now := h.now().UTC()
	year := now.Year()
	month := int(now.Month())

	if yearStr := c.QueryParam("year"); yearStr != "" {
		parsedYear, err := strconv.Atoi(yearStr)
		if err != nil {
			return NewValidationError(c, "Invalid year format", []ValidationError{{Field: "year", Message: "Must be a valid integer"}})
		}
		if parsedYear < 2000 || parsedYear > 2100 {
			return NewValidationError(c, "Year must be between 2000 and 2100", []ValidationError{{Field: "year", Message: "Must be between 2000 and 2100"}})
		}
		year = parsedYear
	}
	if monthStr := c.QueryParam("month"); monthStr != "" {
		parsedMonth, err := strconv.Atoi(monthStr)
		if err != nil {
			return NewValidationError(c, "Invalid month format", []ValidationError{{Field: "month", Message: "Must be a valid integer"}})
		}
		month = parsedMonth
	}

	summary, err := h.dashboardService.GetSummary(c.Request().Context(), year, month)
	if err != nil {
		return handleServiceError(c, err, "get dashboard summary")
	}

	categories := make([]CategoryTotalResponse, len(summary.Categories))
	for i, row := range summary.Categories {
		categories[i] = CategoryTotalResponse{Category: row.Category, Total: formatSum(row.Total)}
	}

	return c.JSON(http.StatusOK, DashboardSummaryResponse{
		Year:           summary.Year,
		Month:          summary.Month,
		CompanyBalance: formatSum(summary.CompanyBalance),
		MonthProfit:    formatSum(summary.MonthProfit),
		Categories:     categories,
	})
}

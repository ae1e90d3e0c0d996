package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/report"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReportHandler handles balance, profit and category report requests
type ReportHandler struct {
	transactionService *service.TransactionService
	reportService      *service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(transactionService *service.TransactionService, reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		transactionService: transactionService,
		reportService:      reportService,
	}
}

// BalanceResponse represents the company balance
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// MonthReportResponse represents the transactions and profit of one month
type MonthReportResponse struct {
	Year         int                   `json:"year"`
	Month        int                   `json:"month"`
	Profit       string                `json:"profit"`
	Transactions []TransactionResponse `json:"transactions"`
}

// PeriodReportResponse represents the transactions and profit of a period
type PeriodReportResponse struct {
	Start        string                `json:"start"`
	End          string                `json:"end"`
	Profit       string                `json:"profit"`
	Transactions []TransactionResponse `json:"transactions"`
}

// CategoryTotalResponse is one row of a category report
type CategoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

// CategoryReportResponse represents per-category totals over a period
type CategoryReportResponse struct {
	Start      string                  `json:"start"`
	End        string                  `json:"end"`
	Categories []CategoryTotalResponse `json:"categories"`
	Total      string                  `json:"total"`
}

// ArchiveReportRequest represents the archive report request body
type ArchiveReportRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Format string `json:"format"`
}

// ArchiveReportResponse locates an archived report
type ArchiveReportResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// GetBalance godoc
// @Summary Get company balance
// @Description Sum of the after-tax amounts of all transactions
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Router /reports/balance [get]
func (h *ReportHandler) GetBalance(c echo.Context) error {
	balance, err := h.transactionService.GetCompanyBalance(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err, "get balance")
	}
	return c.JSON(http.StatusOK, BalanceResponse{Balance: formatSum(balance)})
}

// GetMonth godoc
// @Summary Get a month report
// @Description Transactions created in the calendar month and their profit
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Success 200 {object} MonthReportResponse
// @Failure 400 {object} ProblemDetails
// @Router /reports/months/{year}/{month} [get]
func (h *ReportHandler) GetMonth(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return NewValidationError(c, "Invalid year", []ValidationError{{Field: "year", Message: "Must be a valid integer"}})
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		return NewValidationError(c, "Invalid month", []ValidationError{{Field: "month", Message: "Must be a valid integer"}})
	}

	ctx := c.Request().Context()
	transactions, err := h.transactionService.GetMonthTransactions(ctx, month, year)
	if err != nil {
		return handleServiceError(c, err, "get month transactions")
	}

	return c.JSON(http.StatusOK, MonthReportResponse{
		Year:         year,
		Month:        month,
		Profit:       formatSum(domain.SumAfterTax(transactions)),
		Transactions: toTransactionResponses(transactions),
	})
}

// GetPeriod godoc
// @Summary Get a period report
// @Description Transactions created within [start, end] and their profit
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param start query string true "Start of period (inclusive)"
// @Param end query string true "End of period (inclusive)"
// @Success 200 {object} PeriodReportResponse
// @Failure 400 {object} ProblemDetails
// @Router /reports/period [get]
func (h *ReportHandler) GetPeriod(c echo.Context) error {
	start, end, fields := parseRange(c.QueryParam("start"), c.QueryParam("end"))
	if fields != nil {
		return NewValidationError(c, "Invalid period", fields)
	}

	transactions, err := h.transactionService.GetPeriodTransactions(c.Request().Context(), start, end)
	if err != nil {
		return handleServiceError(c, err, "get period transactions")
	}

	return c.JSON(http.StatusOK, PeriodReportResponse{
		Start:        formatTime(start),
		End:          formatTime(end),
		Profit:       formatSum(domain.SumAfterTax(transactions)),
		Transactions: toTransactionResponses(transactions),
	})
}

// GetCategoryReport godoc
// @Summary Get a category report
// @Description After-tax totals per category name within [start, end]
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param start query string true "Start of period (inclusive)"
// @Param end query string true "End of period (inclusive)"
// @Success 200 {object} CategoryReportResponse
// @Failure 400 {object} ProblemDetails
// @Router /reports/categories [get]
func (h *ReportHandler) GetCategoryReport(c echo.Context) error {
	start, end, fields := parseRange(c.QueryParam("start"), c.QueryParam("end"))
	if fields != nil {
		return NewValidationError(c, "Invalid period", fields)
	}

	totals, err := h.reportService.GetCategoryReport(c.Request().Context(), start, end)
	if err != nil {
		return handleServiceError(c, err, "get category report")
	}

	return c.JSON(http.StatusOK, toCategoryReportResponse(start, end, totals))
}

func toCategoryReportResponse(start, end time.Time, totals domain.CategoryReport) CategoryReportResponse {
	rows := totals.Rows()
	categories := make([]CategoryTotalResponse, len(rows))
	for i, row := range rows {
		categories[i] = CategoryTotalResponse{Category: row.Category, Total: formatSum(row.Total)}
	}
	return CategoryReportResponse{
		Start:      formatTime(start),
		End:        formatTime(end),
		Categories: categories,
		Total:      formatSum(totals.Total()),
	}
}

// ExportCategoryReport godoc
// @Summary Export a category report
// @Description Download the category report as CSV or PDF
// @Tags reports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param start query string true "Start of period (inclusive)"
// @Param end query string true "End of period (inclusive)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} ProblemDetails
// @Router /reports/categories/export [get]
func (h *ReportHandler) ExportCategoryReport(c echo.Context) error {
	start, end, fields := parseRange(c.QueryParam("start"), c.QueryParam("end"))
	if fields != nil {
		return NewValidationError(c, "Invalid period", fields)
	}
	format, err := report.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return handleServiceError(c, err, "export category report")
	}

	exported, err := h.reportService.ExportCategoryReport(c.Request().Context(), start, end, format)
	if err != nil {
		return handleServiceError(c, err, "export category report")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exported.Filename))
	return c.Blob(http.StatusOK, exported.ContentType, exported.Data)
}

// ArchiveCategoryReport godoc
// @Summary Archive a category report
// @Description Render the category report and store it in object storage
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ArchiveReportRequest true "Archive request"
// @Success 201 {object} ArchiveReportResponse
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /reports/categories/archive [post]
func (h *ReportHandler) ArchiveCategoryReport(c echo.Context) error {
	var req ArchiveReportRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	start, end, fields := parseRange(req.Start, req.End)
	if fields != nil {
		return NewValidationError(c, "Invalid period", fields)
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return handleServiceError(c, err, "archive category report")
	}

	archived, err := h.reportService.ArchiveCategoryReport(c.Request().Context(), start, end, format)
	if err != nil {
		return handleServiceError(c, err, "archive category report")
	}

	log.Info().
		Str("key", archived.Key).
		Str("format", string(format)).
		Msg("Category report archived")

	return c.JSON(http.StatusCreated, ArchiveReportResponse{
		Key:       archived.Key,
		URL:       archived.URL,
		ExpiresAt: formatTime(archived.ExpiresAt),
	})
}

package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReportAPI seeds Food 100+200 and Transport 300 in January 2024 and a
// Food transaction on 2023-12-25
func newReportAPI(withStorage bool) *testAPI {
	api := newTestAPI(withStorage)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addCategory(2, "Transport", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Groceries", "100", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC))
	api.addTransaction(2, 1, "Restaurant", "200", time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC))
	api.addTransaction(3, 2, "Taxi", "300", time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC))
	api.addTransaction(4, 1, "Christmas", "999", time.Date(2023, 12, 25, 12, 0, 0, 0, time.UTC))
	return api
}

func TestGetBalance(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "A", "100", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	api.addTransaction(2, 1, "B", "50", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	rec := api.do(http.MethodGet, "/api/v1/reports/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response BalanceResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, "150.00", response.Balance)
}

func TestGetMonth(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodGet, "/api/v1/reports/months/2024/1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response MonthReportResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, 2024, response.Year)
	assert.Equal(t, 1, response.Month)
	assert.Equal(t, "600.00", response.Profit)
	assert.Len(t, response.Transactions, 3)

	rec = api.do(http.MethodGet, "/api/v1/reports/months/2024/13", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "month", decodeProblem(t, rec).Errors[0].Field)

	rec = api.do(http.MethodGet, "/api/v1/reports/months/year/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPeriod(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodGet, "/api/v1/reports/period?start=2023-12-01&end=2024-01-10", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response PeriodReportResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, "1099.00", response.Profit)
	assert.Len(t, response.Transactions, 2)

	// RFC 3339 bounds are taken as given
	rec = api.do(http.MethodGet, "/api/v1/reports/period?start=2024-01-31T22:00:00Z&end=2024-01-31T22:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &response)
	assert.Equal(t, "300.00", response.Profit)

	rec = api.do(http.MethodGet, "/api/v1/reports/period?start=2024-01-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end", decodeProblem(t, rec).Errors[0].Field)
}

func TestGetCategoryReport_RoundTrip(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodGet, "/api/v1/reports/categories?start=2024-01-01&end=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response CategoryReportResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, []CategoryTotalResponse{
		{Category: "Food", Total: "300.00"},
		{Category: "Transport", Total: "300.00"},
	}, response.Categories)
	assert.Equal(t, "600.00", response.Total)
	assert.Equal(t, "2024-01-31T23:59:59.999999999Z", response.End)
}

func TestGetCategoryReport_EndBeforeStart(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodGet, "/api/v1/reports/categories?start=2024-02-01&end=2024-01-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "end", decodeProblem(t, rec).Errors[0].Field)
}

func TestExportCategoryReport(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodGet, "/api/v1/reports/categories/export?start=2024-01-01&end=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "category-report-2024-01-01-to-2024-01-31.csv")
	assert.Equal(t, "category,total\nFood,300.00\nTransport,300.00\nTOTAL,600.00\n", rec.Body.String())

	rec = api.do(http.MethodGet, "/api/v1/reports/categories/export?start=2024-01-01&end=2024-01-31&format=PDF", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = api.do(http.MethodGet, "/api/v1/reports/categories/export?start=2024-01-01&end=2024-01-31&format=xlsx", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "format", decodeProblem(t, rec).Errors[0].Field)
}

func TestArchiveCategoryReport(t *testing.T) {
	api := newReportAPI(true)

	rec := api.do(http.MethodPost, "/api/v1/reports/categories/archive", `{"start": "2024-01-01", "end": "2024-01-31", "format": "csv"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response ArchiveReportResponse
	decodeJSON(t, rec, &response)
	assert.True(t, strings.HasPrefix(response.Key, "reports/"))
	assert.True(t, strings.HasSuffix(response.Key, ".csv"))
	assert.Contains(t, response.URL, response.Key)
	assert.Equal(t, "category,total\nFood,300.00\nTransport,300.00\nTOTAL,600.00\n", string(api.store.Objects[response.Key]))
}

func TestArchiveCategoryReport_StorageNotConfigured(t *testing.T) {
	api := newReportAPI(false)

	rec := api.do(http.MethodPost, "/api/v1/reports/categories/archive", `{"start": "2024-01-01", "end": "2024-01-31"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/reports/categories/archive", `{"start": "soon", "end": "2024-01-31"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MaxImportSize limits the size of an uploaded OFX statement
const MaxImportSize = 10 * 1024 * 1024

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
	importService      *service.ImportService
	receiptService     *service.ReceiptService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService, importService *service.ImportService, receiptService *service.ReceiptService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		importService:      importService,
		receiptService:     receiptService,
	}
}

// TransactionRequest represents the create and update transaction request body
type TransactionRequest struct {
	Name       string `json:"name"`
	Sum        string `json:"sum"`
	CategoryID int32  `json:"categoryId"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	Sum         string `json:"sum"`
	SumAfterTax string `json:"sumAfterTax"`
	CategoryID  int32  `json:"categoryId"`
	HasReceipt  bool   `json:"hasReceipt"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// PaginatedTransactionsResponse represents one page of search results
type PaginatedTransactionsResponse struct {
	Data       []TransactionResponse `json:"data"`
	Page       int32                 `json:"page"`
	PageSize   int32                 `json:"pageSize"`
	TotalItems int64                 `json:"totalItems"`
	TotalPages int32                 `json:"totalPages"`
}

// ReceiptURLResponse represents a presigned receipt download URL
type ReceiptURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Name:        tx.Name,
		Sum:         formatSum(tx.Sum),
		SumAfterTax: formatSum(tx.SumAfterTax),
		CategoryID:  tx.CategoryID,
		HasReceipt:  tx.ReceiptPath != nil,
		CreatedAt:   formatTime(tx.CreatedAt),
		UpdatedAt:   formatTime(tx.UpdatedAt),
	}
}

func toTransactionResponses(transactions []*domain.Transaction) []TransactionResponse {
	response := make([]TransactionResponse, len(transactions))
	for i, tx := range transactions {
		response[i] = toTransactionResponse(tx)
	}
	return response
}

// toInput converts the request body into service input
func (r TransactionRequest) toInput() (service.TransactionInput, []ValidationError) {
	var fields []ValidationError

	sum, err := decimal.NewFromString(r.Sum)
	if err != nil {
		fields = append(fields, ValidationError{Field: "sum", Message: "Must be a valid decimal number"})
	}
	if r.CategoryID <= 0 {
		fields = append(fields, ValidationError{Field: "categoryId", Message: "Category ID is required"})
	}
	if fields != nil {
		return service.TransactionInput{}, fields
	}

	return service.TransactionInput{Name: r.Name, Sum: sum, CategoryID: r.CategoryID}, nil
}

// CreateTransaction godoc
// @Summary Create a transaction
// @Description Create a transaction; the after-tax sum is computed from its category
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransactionRequest true "Transaction creation request"
// @Success 201 {object} TransactionResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	input, fields := req.toInput()
	if fields != nil {
		return NewValidationError(c, "Validation failed", fields)
	}

	tx, err := h.transactionService.Create(c.Request().Context(), input)
	if err != nil {
		return handleServiceError(c, err, "create transaction")
	}

	log.Info().
		Int32("transaction_id", tx.ID).
		Int32("category_id", tx.CategoryID).
		Str("sum_after_tax", formatSum(tx.SumAfterTax)).
		Msg("Transaction created")

	return c.JSON(http.StatusCreated, toTransactionResponse(tx))
}

// GetTransactions godoc
// @Summary List transactions
// @Description Get all transactions ordered by creation time
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TransactionResponse
// @Router /transactions [get]
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	transactions, err := h.transactionService.FindAll(c.Request().Context())
	if err != nil {
		return handleServiceError(c, err, "get transactions")
	}
	return c.JSON(http.StatusOK, toTransactionResponses(transactions))
}

// GetTransaction godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} TransactionResponse
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	tx, err := h.transactionService.Find(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "get transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// LookupTransaction godoc
// @Summary Find a transaction by name
// @Description Get the oldest transaction with exactly the given name
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param name query string true "Transaction name"
// @Success 200 {object} TransactionResponse
// @Failure 404 {object} ProblemDetails
// @Router /transactions/lookup [get]
func (h *TransactionHandler) LookupTransaction(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return NewValidationError(c, "Name is required", []ValidationError{
			{Field: "name", Message: "Name is required"},
		})
	}

	tx, err := h.transactionService.FindByName(c.Request().Context(), name)
	if err != nil {
		return handleServiceError(c, err, "find transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// parseFilter reads the search query parameters
func parseFilter(c echo.Context) (domain.TransactionFilter, []ValidationError) {
	var filter domain.TransactionFilter
	var fields []ValidationError

	if v := c.QueryParam("start"); v != "" {
		start, err := parseInstant(v, false)
		if err != nil {
			fields = append(fields, ValidationError{Field: "start", Message: instantMessage})
		}
		filter.Start = &start
	}
	if v := c.QueryParam("end"); v != "" {
		end, err := parseInstant(v, true)
		if err != nil {
			fields = append(fields, ValidationError{Field: "end", Message: instantMessage})
		}
		filter.End = &end
	}

	for _, v := range c.QueryParams()["categoryId"] {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil || id <= 0 {
			fields = append(fields, ValidationError{Field: "categoryId", Message: "Must be a positive integer"})
			continue
		}
		filter.CategoryIDs = append(filter.CategoryIDs, int32(id))
	}

	filter.NamePrefix = c.QueryParam("prefix")
	filter.NameSuffix = c.QueryParam("suffix")

	if v := c.QueryParam("taxType"); v != "" {
		taxType := domain.TaxType(v)
		filter.TaxType = &taxType
	}

	for _, p := range []struct {
		name   string
		target *int32
	}{{"page", &filter.Page}, {"pageSize", &filter.PageSize}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			fields = append(fields, ValidationError{Field: p.name, Message: "Must be an integer"})
			continue
		}
		*p.target = int32(n)
	}

	return filter, fields
}

// SearchTransactions godoc
// @Summary Search transactions
// @Description Filter transactions by period, categories, name prefix or suffix and tax type
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param start query string false "Start of period (inclusive)"
// @Param end query string false "End of period (inclusive)"
// @Param categoryId query []int false "Category IDs" collectionFormat(multi)
// @Param prefix query string false "Name prefix"
// @Param suffix query string false "Name suffix"
// @Param taxType query string false "Tax type of the category"
// @Param page query int false "Page number (default 1)"
// @Param pageSize query int false "Page size (default 20, max 100)"
// @Success 200 {object} PaginatedTransactionsResponse
// @Failure 400 {object} ProblemDetails
// @Router /transactions/search [get]
func (h *TransactionHandler) SearchTransactions(c echo.Context) error {
	filter, fields := parseFilter(c)
	if fields != nil {
		return NewValidationError(c, "Invalid search filter", fields)
	}

	page, err := h.transactionService.Search(c.Request().Context(), filter)
	if err != nil {
		return handleServiceError(c, err, "search transactions")
	}

	return c.JSON(http.StatusOK, PaginatedTransactionsResponse{
		Data:       toTransactionResponses(page.Data),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	})
}

// UpdateTransaction godoc
// @Summary Update a transaction
// @Description Replace name, sum and category; the after-tax sum is recomputed
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param request body TransactionRequest true "Transaction update request"
// @Success 200 {object} TransactionResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	input, fields := req.toInput()
	if fields != nil {
		return NewValidationError(c, "Validation failed", fields)
	}

	tx, err := h.transactionService.Update(c.Request().Context(), id, input)
	if err != nil {
		return handleServiceError(c, err, "update transaction")
	}

	log.Info().
		Int32("transaction_id", tx.ID).
		Str("sum_after_tax", formatSum(tx.SumAfterTax)).
		Msg("Transaction updated")

	return c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Description Delete a transaction that is at least 14 days old
// @Tags transactions
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 204
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	if err := h.transactionService.Delete(c.Request().Context(), id); err != nil {
		return handleServiceError(c, err, "delete transaction")
	}

	log.Info().Int32("transaction_id", id).Msg("Transaction deleted")
	return c.NoContent(http.StatusNoContent)
}

// readUpload reads the multipart file field "file" up to limit+1 bytes
func readUpload(c echo.Context, limit int64) ([]byte, string, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, "", false
	}
	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return nil, "", false
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return nil, "", false
	}
	return data, file.Filename, true
}

func missingFileError(c echo.Context) error {
	return NewValidationError(c, "No file provided", []ValidationError{
		{Field: "file", Message: "File is required"},
	})
}

// ImportTransactions godoc
// @Summary Import an OFX statement
// @Description Create one transaction per statement line in the given category
// @Tags transactions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "OFX or QFX statement"
// @Param categoryId formData int true "Category for the imported transactions"
// @Success 200 {object} service.ImportResult
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/import [post]
func (h *TransactionHandler) ImportTransactions(c echo.Context) error {
	categoryID, err := strconv.ParseInt(c.FormValue("categoryId"), 10, 32)
	if err != nil || categoryID <= 0 {
		return NewValidationError(c, "Invalid categoryId", []ValidationError{
			{Field: "categoryId", Message: "Must be a positive integer"},
		})
	}

	data, filename, ok := readUpload(c, MaxImportSize)
	if !ok {
		return missingFileError(c)
	}
	if int64(len(data)) > MaxImportSize {
		return NewValidationError(c, "File too large", []ValidationError{
			{Field: "file", Message: "Maximum size is 10MB"},
		})
	}

	result, err := h.importService.ImportOFX(c.Request().Context(), bytes.NewReader(data), int32(categoryID))
	if err != nil {
		return handleServiceError(c, err, "import transactions")
	}

	log.Debug().Str("filename", filename).Int("size", len(data)).Msg("Statement upload processed")

	return c.JSON(http.StatusOK, result)
}

// UploadReceipt godoc
// @Summary Attach a receipt
// @Description Upload a JPEG, PNG or WebP receipt image, replacing any previous one
// @Tags transactions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param file formData file true "Receipt image"
// @Success 200 {object} TransactionResponse
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /transactions/{id}/receipt [put]
func (h *TransactionHandler) UploadReceipt(c echo.Context) error {
	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	data, filename, ok := readUpload(c, service.MaxReceiptSize)
	if !ok {
		return missingFileError(c)
	}

	tx, err := h.receiptService.UploadReceipt(c.Request().Context(), id, data, filename)
	if err != nil {
		return handleServiceError(c, err, "upload receipt")
	}

	log.Info().
		Int32("transaction_id", tx.ID).
		Str("filename", filename).
		Msg("Receipt uploaded")

	return c.JSON(http.StatusOK, toTransactionResponse(tx))
}

// GetReceipt godoc
// @Summary Get a receipt download URL
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} ReceiptURLResponse
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /transactions/{id}/receipt [get]
func (h *TransactionHandler) GetReceipt(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidIDError(c, "id")
	}

	url, expiresAt, err := h.receiptService.ReceiptURL(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "get receipt")
	}
	return c.JSON(http.StatusOK, ReceiptURLResponse{URL: url, ExpiresAt: formatTime(expiresAt)})
}

package handler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransaction_Success(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Salary", "10", domain.TaxTypeGeneral)

	rec := api.do(http.MethodPost, "/api/v1/transactions", `{"name": "January salary", "sum": "100", "categoryId": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response TransactionResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, "January salary", response.Name)
	assert.Equal(t, "100.00", response.Sum)
	assert.Equal(t, "90.00", response.SumAfterTax)
	assert.Equal(t, int32(1), response.CategoryID)
	assert.False(t, response.HasReceipt)
	assert.Equal(t, response.CreatedAt, response.UpdatedAt)
}

func TestCreateTransaction_ExpenseTax(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Supplies", "10", domain.TaxTypeExpense)

	rec := api.do(http.MethodPost, "/api/v1/transactions", `{"name": "Paper", "sum": "-100", "categoryId": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response TransactionResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, "-110.00", response.SumAfterTax)
}

func TestCreateTransaction_Errors(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Salary", "10", domain.TaxTypeGeneral)
	deleted := api.addCategory(2, "Retired", "0", domain.TaxTypeGeneral)
	deletedAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	deleted.DeletedAt = &deletedAt

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		field          string
	}{
		{"bad sum", `{"name": "X", "sum": "lots", "categoryId": 1}`, http.StatusBadRequest, "sum"},
		{"missing category", `{"name": "X", "sum": "1"}`, http.StatusBadRequest, "categoryId"},
		{"empty name", `{"name": "", "sum": "1", "categoryId": 1}`, http.StatusBadRequest, "name"},
		{"unknown category", `{"name": "X", "sum": "1", "categoryId": 9}`, http.StatusNotFound, ""},
		{"soft-deleted category", `{"name": "X", "sum": "1", "categoryId": 2}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/transactions", tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.field != "" {
				problem := decodeProblem(t, rec)
				require.NotEmpty(t, problem.Errors)
				assert.Equal(t, tt.field, problem.Errors[0].Field)
			}
		})
	}
	assert.Empty(t, api.transactions.Transactions)
}

func TestGetTransactions_AndLookup(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Lunch", "-10", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	api.addTransaction(2, 1, "Lunch", "-12", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	rec := api.do(http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []TransactionResponse
	decodeJSON(t, rec, &all)
	require.Len(t, all, 2)
	assert.Equal(t, int32(2), all[0].ID)

	rec = api.do(http.MethodGet, "/api/v1/transactions/lookup?name=Lunch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found TransactionResponse
	decodeJSON(t, rec, &found)
	assert.Equal(t, int32(2), found.ID, "lookup returns the oldest match")

	rec = api.do(http.MethodGet, "/api/v1/transactions/lookup?name=Dinner", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/transactions/lookup", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/transactions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &found)
	assert.Equal(t, "-10.00", found.SumAfterTax)
}

func TestUpdateTransaction(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addCategory(2, "Salary", "20", domain.TaxTypeGeneral)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api.addTransaction(1, 1, "Lunch", "-10", created)

	rec := api.do(http.MethodPut, "/api/v1/transactions/1", `{"name": "Bonus", "sum": "50", "categoryId": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response TransactionResponse
	decodeJSON(t, rec, &response)
	assert.Equal(t, "Bonus", response.Name)
	assert.Equal(t, "40.00", response.SumAfterTax)
	assert.Equal(t, formatTime(created), response.CreatedAt)
	assert.NotEqual(t, response.CreatedAt, response.UpdatedAt)

	rec = api.do(http.MethodPut, "/api/v1/transactions/5", `{"name": "Bonus", "sum": "50", "categoryId": 2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTransaction_RetentionWindow(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Recent", "-10", time.Now().UTC().Add(-time.Hour))
	api.addTransaction(2, 1, "Old", "-10", time.Now().UTC().AddDate(0, 0, -15))

	rec := api.do(http.MethodDelete, "/api/v1/transactions/1", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, ErrorTypePolicyViolation, problem.Type)
	assert.Contains(t, problem.Detail, "14-day retention window")
	assert.Contains(t, api.transactions.Transactions, int32(1))

	rec = api.do(http.MethodDelete, "/api/v1/transactions/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, api.transactions.Transactions, int32(2))

	rec = api.do(http.MethodDelete, "/api/v1/transactions/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchTransactions(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addCategory(2, "Supplies", "10", domain.TaxTypeExpense)
	api.addTransaction(1, 1, "Lunch at cafe", "-10", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	api.addTransaction(2, 1, "Lunch at office", "-8", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	api.addTransaction(3, 2, "Paper", "-22", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))

	rec := api.do(http.MethodGet, "/api/v1/transactions/search?prefix=Lunch&start=2024-01-01&end=2024-01-31", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page PaginatedTransactionsResponse
	decodeJSON(t, rec, &page)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, int32(1), page.Page)
	assert.Equal(t, int32(domain.DefaultPageSize), page.PageSize)

	rec = api.do(http.MethodGet, "/api/v1/transactions/search?taxType=expense_tax", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Paper", page.Data[0].Name)

	rec = api.do(http.MethodGet, "/api/v1/transactions/search?categoryId=1&categoryId=2&pageSize=2&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, int32(2), page.TotalPages)
	assert.Len(t, page.Data, 1)
}

func TestSearchTransactions_InvalidFilter(t *testing.T) {
	api := newTestAPI(false)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"bad start", "start=yesterday", "start"},
		{"bad category", "categoryId=abc", "categoryId"},
		{"bad page", "page=x", "page"},
		{"negative page", "page=-1", "page"},
		{"end before start", "start=2024-02-01&end=2024-01-01", "end"},
		{"unknown tax type", "taxType=vat", "taxType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodGet, "/api/v1/transactions/search?"+tt.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			problem := decodeProblem(t, rec)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

const handlerOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>-25.50
<FITID>A1
<NAME>Office Supplies
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>-25.50
<FITID>A1
<NAME>Office Supplies
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImportTransactions(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Supplies", "10", domain.TaxTypeExpense)

	rec := api.upload(t, http.MethodPost, "/api/v1/transactions/import", "statement.ofx", []byte(handlerOFX), map[string]string{"categoryId": "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result service.ImportResult
	decodeJSON(t, rec, &result)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Errors)

	require.Len(t, api.transactions.Transactions, 1)
	for _, tx := range api.transactions.Transactions {
		assert.Equal(t, "Office Supplies", tx.Name)
		assert.Equal(t, "-28.05", tx.SumAfterTax.StringFixed(2))
	}

	// the statement is dated January, but the rows are new and still retained
	require.Len(t, result.Transactions, 1)
	rec = api.do(http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", result.Transactions[0]), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestImportTransactions_Errors(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Supplies", "10", domain.TaxTypeExpense)

	rec := api.upload(t, http.MethodPost, "/api/v1/transactions/import", "statement.ofx", []byte(handlerOFX), map[string]string{"categoryId": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.upload(t, http.MethodPost, "/api/v1/transactions/import", "", nil, map[string]string{"categoryId": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file", decodeProblem(t, rec).Errors[0].Field)

	rec = api.upload(t, http.MethodPost, "/api/v1/transactions/import", "statement.ofx", []byte(handlerOFX), map[string]string{"categoryId": "9"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.upload(t, http.MethodPost, "/api/v1/transactions/import", "statement.ofx", []byte("not an ofx file"), map[string]string{"categoryId": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestReceipt_UploadAndURL(t *testing.T) {
	api := newTestAPI(true)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Lunch", "-10", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	rec := api.do(http.MethodGet, "/api/v1/transactions/1/receipt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.upload(t, http.MethodPut, "/api/v1/transactions/1/receipt", "receipt.png", pngBytes(t, 40, 20), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response TransactionResponse
	decodeJSON(t, rec, &response)
	assert.True(t, response.HasReceipt)

	require.NotNil(t, api.transactions.Transactions[1].ReceiptPath)
	key := *api.transactions.Transactions[1].ReceiptPath
	assert.True(t, strings.HasPrefix(key, "receipts/1/"))
	assert.Equal(t, "image/jpeg", api.store.ContentTypes[key])

	rec = api.do(http.MethodGet, "/api/v1/transactions/1/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var url ReceiptURLResponse
	decodeJSON(t, rec, &url)
	assert.Contains(t, url.URL, key)
	assert.NotEmpty(t, url.ExpiresAt)
}

func TestReceipt_Validation(t *testing.T) {
	api := newTestAPI(true)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Lunch", "-10", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	rec := api.upload(t, http.MethodPut, "/api/v1/transactions/1/receipt", "receipt.gif", pngBytes(t, 4, 4), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file", decodeProblem(t, rec).Errors[0].Field)

	rec = api.upload(t, http.MethodPut, "/api/v1/transactions/1/receipt", "", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.upload(t, http.MethodPut, "/api/v1/transactions/7/receipt", "receipt.png", pngBytes(t, 4, 4), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceipt_StorageNotConfigured(t *testing.T) {
	api := newTestAPI(false)
	api.addCategory(1, "Food", "0", domain.TaxTypeGeneral)
	api.addTransaction(1, 1, "Lunch", "-10", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	rec := api.upload(t, http.MethodPut, "/api/v1/transactions/1/receipt", "receipt.png", pngBytes(t, 4, 4), nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrorTypeServiceUnavailable, decodeProblem(t, rec).Type)

	rec = api.do(http.MethodGet, "/api/v1/transactions/1/receipt", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(t *testing.T) Document {
	t.Helper()
	period, err := domain.NewClosedPeriod(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	r := domain.CategoryReport{
		"Transport": decimal.NewFromInt(300),
		"Food":      decimal.RequireFromString("299.5"),
	}
	return NewDocument(period, r, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"PDF", FormatPDF, false},
		{" pdf ", FormatPDF, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, testDocument(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"category", "total"},
		{"Food", "299.50"},
		{"Transport", "300.00"},
		{"TOTAL", "599.50"},
	}, records)
}

func TestRenderPDF(t *testing.T) {
	data, err := RenderBytes(testDocument(t), FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestRenderPDF_ManyRowsPaginates(t *testing.T) {
	r := make(domain.CategoryReport)
	for i := 0; i < 80; i++ {
		r[string(rune('A'+i%26))+string(rune('a'+i/26))] = decimal.NewFromInt(int64(i))
	}
	period, err := domain.MonthPeriod(2024, 3)
	require.NoError(t, err)

	data, err := RenderBytes(NewDocument(period, r, time.Now()), FormatPDF)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestDocumentFilename(t *testing.T) {
	d := testDocument(t)
	assert.Equal(t, "category-report-2024-01-01-to-2024-01-31.csv", d.Filename(FormatCSV))
	assert.Equal(t, "category-report-2024-01-01-to-2024-01-31.pdf", d.Filename(FormatPDF))
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := RenderBytes(testDocument(t), Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a solid test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	if format == "png" {
		_ = png.Encode(&buf, img)
		return buf.Bytes(), "receipt.png"
	}
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
	return buf.Bytes(), "receipt.jpg"
}

func newReceiptFixture() (*ReceiptService, *testutil.MockTransactionRepository, *testutil.MockObjectStore) {
	transactionRepo := testutil.NewMockTransactionRepository()
	transactionRepo.AddTransaction(&domain.Transaction{ID: 1, Name: "Lunch", CategoryID: 1, CreatedAt: testNow})
	store := testutil.NewMockObjectStore()
	svc := NewReceiptService(transactionRepo, store)
	svc.now = fixedClock(testNow)
	return svc, transactionRepo, store
}

func TestUploadReceipt_ResizesToJPEG(t *testing.T) {
	svc, _, store := newReceiptFixture()
	publisher := &testutil.MockEventPublisher{}
	svc.SetEventPublisher(publisher)
	data, filename := createTestImage(3200, 1600, "png")

	tx, err := svc.UploadReceipt(context.Background(), 1, data, filename)
	require.NoError(t, err)
	require.NotNil(t, tx.ReceiptPath)

	key := *tx.ReceiptPath
	assert.True(t, strings.HasPrefix(key, "receipts/1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Equal(t, "image/jpeg", store.ContentTypes[key])
	assert.True(t, tx.UpdatedAt.Equal(testNow))

	stored, err := jpeg.DecodeConfig(bytes.NewReader(store.Objects[key]))
	require.NoError(t, err)
	assert.Equal(t, MaxReceiptWidth, stored.Width)
	assert.Equal(t, 800, stored.Height)

	assert.Equal(t, []string{"transaction.updated"}, publisher.Types())
}

func TestUploadReceipt_SmallImageKeepsSize(t *testing.T) {
	svc, _, store := newReceiptFixture()
	data, filename := createTestImage(200, 100, "jpeg")

	tx, err := svc.UploadReceipt(context.Background(), 1, data, filename)
	require.NoError(t, err)

	stored, err := jpeg.DecodeConfig(bytes.NewReader(store.Objects[*tx.ReceiptPath]))
	require.NoError(t, err)
	assert.Equal(t, 200, stored.Width)
	assert.Equal(t, 100, stored.Height)
}

func TestUploadReceipt_ReplacesPrevious(t *testing.T) {
	svc, _, store := newReceiptFixture()
	data, filename := createTestImage(50, 50, "jpeg")
	ctx := context.Background()

	first, err := svc.UploadReceipt(ctx, 1, data, filename)
	require.NoError(t, err)
	firstKey := *first.ReceiptPath

	second, err := svc.UploadReceipt(ctx, 1, data, filename)
	require.NoError(t, err)

	assert.NotEqual(t, firstKey, *second.ReceiptPath)
	assert.NotContains(t, store.Objects, firstKey)
	assert.Contains(t, store.Objects, *second.ReceiptPath)
}

func TestUploadReceipt_Validation(t *testing.T) {
	svc, _, store := newReceiptFixture()
	ctx := context.Background()
	data, _ := createTestImage(10, 10, "jpeg")

	_, err := svc.UploadReceipt(ctx, 1, make([]byte, MaxReceiptSize+1), "big.jpg")
	assert.ErrorIs(t, err, ErrReceiptTooLarge)

	_, err = svc.UploadReceipt(ctx, 1, data, "receipt.gif")
	assert.ErrorIs(t, err, ErrReceiptFormat)

	_, err = svc.UploadReceipt(ctx, 1, []byte("not an image"), "receipt.png")
	assert.ErrorIs(t, err, ErrReceiptImageData)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UploadReceipt(ctx, 99, data, "receipt.jpg")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

	assert.Empty(t, store.Objects)
}

func TestUploadReceipt_UploadFailure(t *testing.T) {
	svc, transactionRepo, store := newReceiptFixture()
	store.UploadFn = func(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error) {
		return "", errors.New("bucket unavailable")
	}
	data, filename := createTestImage(10, 10, "jpeg")

	_, err := svc.UploadReceipt(context.Background(), 1, data, filename)
	assert.Error(t, err)
	assert.Nil(t, transactionRepo.Transactions[1].ReceiptPath)
}

func TestUploadReceipt_SetReceiptFailureLogsCleanupError(t *testing.T) {
	svc, transactionRepo, store := newReceiptFixture()
	transactionRepo.SetReceiptFn = func(ctx context.Context, id int32, receiptPath *string, updatedAt time.Time) (*domain.Transaction, error) {
		return nil, domain.StorageError("set receipt", errors.New("connection reset"))
	}
	var deleted []string
	store.DeleteFn = func(ctx context.Context, key string) error {
		deleted = append(deleted, key)
		return errors.New("bucket unavailable")
	}

	var logs bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&logs)
	defer func() { log.Logger = previous }()

	data, filename := createTestImage(10, 10, "jpeg")
	_, err := svc.UploadReceipt(context.Background(), 1, data, filename)
	assert.ErrorIs(t, err, domain.ErrStorage)

	require.Len(t, deleted, 1)
	assert.True(t, strings.HasPrefix(deleted[0], "receipts/1/"))
	assert.Contains(t, logs.String(), "Failed to delete orphaned receipt")
	assert.Contains(t, logs.String(), "bucket unavailable")
	assert.Contains(t, logs.String(), deleted[0])
}

func TestReceiptURL(t *testing.T) {
	svc, _, _ := newReceiptFixture()
	ctx := context.Background()

	_, _, err := svc.ReceiptURL(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrReceiptNotFound)

	data, filename := createTestImage(10, 10, "jpeg")
	tx, err := svc.UploadReceipt(ctx, 1, data, filename)
	require.NoError(t, err)

	url, expiresAt, err := svc.ReceiptURL(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, url, *tx.ReceiptPath)
	assert.True(t, expiresAt.Equal(testNow.Add(ReceiptURLExpiry)))
}

func TestReceiptService_Disabled(t *testing.T) {
	svc := NewReceiptService(testutil.NewMockTransactionRepository(), nil)
	assert.False(t, svc.IsEnabled())

	_, err := svc.UploadReceipt(context.Background(), 1, nil, "a.jpg")
	assert.ErrorIs(t, err, ErrObjectStorageNotConfigured)

	_, _, err = svc.ReceiptURL(context.Background(), 1)
	assert.ErrorIs(t, err, ErrObjectStorageNotConfigured)
}

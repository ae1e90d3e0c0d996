package service

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/dafibh/fintrack/fintrack-backend/internal/domain"
	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/dafibh/fintrack/fintrack-backend/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	MaxReceiptSize   = 5 * 1024 * 1024 // 5MB
	MaxReceiptWidth  = 1600
	MaxReceiptHeight = 1600
	ReceiptQuality   = 85
	ReceiptURLExpiry = 15 * time.Minute

	receiptContentType = "image/jpeg"
)

var (
	ErrReceiptTooLarge  = fmt.Errorf("%w: file too large, maximum size is 5MB", domain.ErrValidation)
	ErrReceiptFormat    = fmt.Errorf("%w: invalid format, supported: JPEG, PNG, WebP", domain.ErrValidation)
	ErrReceiptImageData = fmt.Errorf("%w: invalid image data", domain.ErrValidation)

	allowedReceiptFormats = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
)

// ReceiptService attaches receipt images to transactions
type ReceiptService struct {
	transactionRepo domain.TransactionRepository
	objectStore     storage.ObjectStore
	eventPublisher  event.Publisher
	now             func() time.Time
}

// NewReceiptService creates a new ReceiptService. objectStore may be nil, in
// which case every operation fails with ErrObjectStorageNotConfigured.
func NewReceiptService(transactionRepo domain.TransactionRepository, objectStore storage.ObjectStore) *ReceiptService {
	return &ReceiptService{
		transactionRepo: transactionRepo,
		objectStore:     objectStore,
		now:             time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ReceiptService) SetEventPublisher(publisher event.Publisher) {
	s.eventPublisher = publisher
}

// IsEnabled indicates whether object storage is configured
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.objectStore != nil
}

// UploadReceipt normalizes the image to a JPEG no larger than 1600x1600,
// stores it and replaces any previous receipt of the transaction
func (s *ReceiptService) UploadReceipt(ctx context.Context, transactionID int32, data []byte, filename string) (*domain.Transaction, error) {
	if !s.IsEnabled() {
		return nil, ErrObjectStorageNotConfigured
	}
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	if !allowedReceiptFormats[strings.ToLower(filepath.Ext(filename))] {
		return nil, ErrReceiptFormat
	}

	existing, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrReceiptImageData
	}
	img = imaging.Fit(img, MaxReceiptWidth, MaxReceiptHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: ReceiptQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode receipt: %w", err)
	}

	var previous string
	if existing.ReceiptPath != nil {
		previous = *existing.ReceiptPath
	}

	key := fmt.Sprintf("receipts/%d/%s.jpg", transactionID, uuid.New().String())
	key, err = s.objectStore.Upload(ctx, key, bytes.NewReader(buf.Bytes()), receiptContentType, int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}

	updated, err := s.transactionRepo.SetReceipt(ctx, transactionID, &key, timestamp(s.now))
	if err != nil {
		if cleanupErr := s.objectStore.Delete(ctx, key); cleanupErr != nil {
			log.Warn().
				Err(cleanupErr).
				Int32("transaction_id", transactionID).
				Str("receipt_path", key).
				Msg("Failed to delete orphaned receipt")
		}
		return nil, err
	}

	if previous != "" && previous != key {
		if err := s.objectStore.Delete(ctx, previous); err != nil {
			log.Warn().
				Err(err).
				Int32("transaction_id", transactionID).
				Str("receipt_path", previous).
				Msg("Failed to delete replaced receipt")
		}
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event.TransactionUpdated(updated))
	}
	return updated, nil
}

// ReceiptURL presigns a temporary download URL for the transaction's receipt
func (s *ReceiptService) ReceiptURL(ctx context.Context, transactionID int32) (string, time.Time, error) {
	if !s.IsEnabled() {
		return "", time.Time{}, ErrObjectStorageNotConfigured
	}

	transaction, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return "", time.Time{}, err
	}
	if transaction.ReceiptPath == nil {
		return "", time.Time{}, domain.ErrReceiptNotFound
	}

	url, err := s.objectStore.PresignGet(ctx, *transaction.ReceiptPath, ReceiptURLExpiry)
	if err != nil {
		return "", time.Time{}, err
	}
	return url, s.now().UTC().Add(ReceiptURLExpiry), nil
}

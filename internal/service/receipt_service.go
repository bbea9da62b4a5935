package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/costaverde/billing-backend/internal/repository/storage"
)

const (
	MaxReceiptSize   = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth  = 50
	MinReceiptHeight = 50
	ThumbnailWidth   = 200
	DisplayWidth     = 800
	JPEGQuality      = 85

	// ReceiptURLExpiry bounds how long a fetched receipt link stays valid.
	ReceiptURLExpiry = 15 * time.Minute
)

var (
	ErrReceiptTooLarge    = errors.New("file too large. Maximum size is 5MB")
	ErrInvalidFormat      = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall    = errors.New("image too small. Minimum 50x50 pixels")
	ErrInvalidReceiptData = errors.New("invalid image data")
	ErrStorageDisabled    = errors.New("receipt storage not configured")
)

// AllowedExtensions maps extensions to content types
var AllowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

var receiptVariants = []struct {
	name     string
	maxWidth int
}{
	{"thumb", ThumbnailWidth},
	{"display", DisplayWidth},
	{"original", 0}, // 0 means keep original size
}

// ReceiptMetadata identifies a stored receipt and its variants.
type ReceiptMetadata struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	ThumbnailPath string `json:"thumbnailPath"`
	DisplayPath   string `json:"displayPath"`
	OriginalPath  string `json:"originalPath"`
}

// ReceiptURLs carries presigned links for one stored receipt.
type ReceiptURLs struct {
	ThumbnailURL string `json:"thumbnailUrl"`
	DisplayURL   string `json:"displayUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// ReceiptService validates, resizes, and stores payment receipt images.
// Storage is optional at bootstrap; when absent, uploads fail with
// ErrStorageDisabled and the rest of the engine is unaffected.
type ReceiptService struct {
	storage storage.ReceiptRepository
}

func NewReceiptService(storage storage.ReceiptRepository) *ReceiptService {
	return &ReceiptService{storage: storage}
}

// IsEnabled indicates whether uploads/deletes are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// validateAndDecode validates the receipt image and returns it decoded
func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return nil, ErrInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidReceiptData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}

	return img, nil
}

// Upload validates a receipt image, generates its resized variants, and
// stores all of them under the transaction. A failed variant upload
// rolls back the ones already written.
func (s *ReceiptService) Upload(ctx context.Context, clientID, transactionID string, data []byte, filename string) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageDisabled
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	receiptID := uuid.New().String()
	paths := make(map[string]string)

	for _, variant := range receiptVariants {
		var processed image.Image
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			// Resize maintaining aspect ratio
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		} else {
			processed = img
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode receipt: %w", err)
		}

		objectPath := storage.ReceiptObjectPath(clientID, transactionID, receiptID, variant.name)
		if _, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
			s.cleanupVariants(ctx, paths)
			return nil, fmt.Errorf("failed to upload %s variant: %w", variant.name, err)
		}
		paths[variant.name] = objectPath
	}

	return &ReceiptMetadata{
		ID:            receiptID,
		TransactionID: transactionID,
		ThumbnailPath: paths["thumb"],
		DisplayPath:   paths["display"],
		OriginalPath:  paths["original"],
	}, nil
}

// cleanupVariants removes variants already uploaded during a failed operation
func (s *ReceiptService) cleanupVariants(ctx context.Context, paths map[string]string) {
	for _, p := range paths {
		_ = s.storage.Delete(ctx, p)
	}
}

// FetchURLs returns short-lived presigned links for a stored receipt.
func (s *ReceiptService) FetchURLs(ctx context.Context, clientID, transactionID, receiptID string) (*ReceiptURLs, error) {
	if !s.IsEnabled() {
		return nil, ErrStorageDisabled
	}
	urls := &ReceiptURLs{}
	targets := map[string]*string{
		"thumb":    &urls.ThumbnailURL,
		"display":  &urls.DisplayURL,
		"original": &urls.OriginalURL,
	}
	for variant, dst := range targets {
		u, err := s.storage.GeneratePresignedURL(ctx,
			storage.ReceiptObjectPath(clientID, transactionID, receiptID, variant), ReceiptURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("failed to presign %s variant: %w", variant, err)
		}
		*dst = u
	}
	return urls, nil
}

// Delete removes every stored variant of a receipt. Best effort: a
// variant that fails to delete does not abort the rest.
func (s *ReceiptService) Delete(ctx context.Context, clientID, transactionID, receiptID string) error {
	if !s.IsEnabled() {
		return ErrStorageDisabled
	}
	var firstErr error
	for _, variant := range receiptVariants {
		p := storage.ReceiptObjectPath(clientID, transactionID, receiptID, variant.name)
		if err := s.storage.Delete(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetContentType returns the content type for a file extension
func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := AllowedExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

package storage

import (
	"context"
	"io"
	"path"
	"time"
)

// ReceiptRepository defines the interface for receipt object storage
type ReceiptRepository interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}

// ReceiptObjectPath builds the bucket key for one receipt variant:
// clients/{clientID}/receipts/{transactionID}/{receiptID}_{variant}.jpg
func ReceiptObjectPath(clientID, transactionID, receiptID, variant string) string {
	return path.Join("clients", clientID, "receipts", transactionID, receiptID+"_"+variant+".jpg")
}

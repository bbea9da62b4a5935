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
)

// createTestImage creates a test image of the specified size and format
func createTestImage(width, height int, format string) ([]byte, string) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	var buf bytes.Buffer
	var filename string

	switch format {
	case "png":
		png.Encode(&buf, img)
		filename = "receipt.png"
	default:
		jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		filename = "receipt.jpg"
	}

	return buf.Bytes(), filename
}

// fakeReceiptRepository stores objects in a map
type fakeReceiptRepository struct {
	objects map[string][]byte
	failOn  string
}

func newFakeReceiptRepository() *fakeReceiptRepository {
	return &fakeReceiptRepository{objects: make(map[string][]byte)}
}

func (f *fakeReceiptRepository) Upload(_ context.Context, objectPath string, data io.Reader, _ string, _ int64) (string, error) {
	if f.failOn != "" && strings.Contains(objectPath, f.failOn) {
		return "", errors.New("upload failed")
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.objects[objectPath] = body
	return objectPath, nil
}

func (f *fakeReceiptRepository) Delete(_ context.Context, objectPath string) error {
	delete(f.objects, objectPath)
	return nil
}

func (f *fakeReceiptRepository) GeneratePresignedURL(_ context.Context, objectPath string, _ time.Duration) (string, error) {
	return "https://receipts.example/" + objectPath, nil
}

func TestReceiptService_Upload(t *testing.T) {
	repo := newFakeReceiptRepository()
	svc := NewReceiptService(repo)
	data, filename := createTestImage(1200, 900, "jpeg")

	meta, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, filename)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if meta.ID == "" {
		t.Error("expected non-empty receipt ID")
	}
	if len(repo.objects) != 3 {
		t.Errorf("expected 3 stored variants, got %d", len(repo.objects))
	}
	if _, ok := repo.objects[meta.ThumbnailPath]; !ok {
		t.Errorf("thumbnail %s not stored", meta.ThumbnailPath)
	}
	if !strings.HasPrefix(meta.OriginalPath, "clients/costa-verde/receipts/txn-1/") {
		t.Errorf("unexpected object path %s", meta.OriginalPath)
	}
}

func TestReceiptService_Upload_TooLarge(t *testing.T) {
	svc := NewReceiptService(newFakeReceiptRepository())
	data := make([]byte, MaxReceiptSize+1)

	_, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, "receipt.jpg")
	if err != ErrReceiptTooLarge {
		t.Errorf("expected ErrReceiptTooLarge, got %v", err)
	}
}

func TestReceiptService_Upload_InvalidFormat(t *testing.T) {
	svc := NewReceiptService(newFakeReceiptRepository())
	data, _ := createTestImage(100, 100, "jpeg")

	_, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, "receipt.gif")
	if err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestReceiptService_Upload_TooSmall(t *testing.T) {
	svc := NewReceiptService(newFakeReceiptRepository())
	data, filename := createTestImage(30, 30, "jpeg")

	_, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, filename)
	if err != ErrReceiptTooSmall {
		t.Errorf("expected ErrReceiptTooSmall, got %v", err)
	}
}

func TestReceiptService_Upload_InvalidData(t *testing.T) {
	svc := NewReceiptService(newFakeReceiptRepository())

	_, err := svc.Upload(context.Background(), "costa-verde", "txn-1", []byte("not an image"), "receipt.jpg")
	if err != ErrInvalidReceiptData {
		t.Errorf("expected ErrInvalidReceiptData, got %v", err)
	}
}

func TestReceiptService_Upload_RollsBackOnFailure(t *testing.T) {
	repo := newFakeReceiptRepository()
	repo.failOn = "_original"
	svc := NewReceiptService(repo)
	data, filename := createTestImage(1200, 900, "jpeg")

	_, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, filename)
	if err == nil {
		t.Fatal("expected upload error")
	}
	if len(repo.objects) != 0 {
		t.Errorf("expected cleanup of uploaded variants, %d left", len(repo.objects))
	}
}

func TestReceiptService_DisabledStorage(t *testing.T) {
	svc := NewReceiptService(nil)
	data, filename := createTestImage(100, 100, "jpeg")

	if svc.IsEnabled() {
		t.Error("expected storage to be disabled")
	}
	if _, err := svc.Upload(context.Background(), "costa-verde", "txn-1", data, filename); err != ErrStorageDisabled {
		t.Errorf("expected ErrStorageDisabled, got %v", err)
	}
}

func TestReceiptService_FetchURLs(t *testing.T) {
	repo := newFakeReceiptRepository()
	svc := NewReceiptService(repo)

	urls, err := svc.FetchURLs(context.Background(), "costa-verde", "txn-1", "r-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(urls.ThumbnailURL, "r-1_thumb.jpg") {
		t.Errorf("unexpected thumbnail URL %s", urls.ThumbnailURL)
	}
	if !strings.Contains(urls.DisplayURL, "r-1_display.jpg") {
		t.Errorf("unexpected display URL %s", urls.DisplayURL)
	}
}

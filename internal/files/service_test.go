package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cvbuilder/internal/shared/storage/object"
	"cvbuilder/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) (*Service, *local.Store) {
	t.Helper()
	store := local.New(t.TempDir())
	svc := NewService(store, NewMemoryRepo())
	return svc, store
}

func TestUploadExtractsAndSanitizes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	f, err := svc.Upload(ctx, "user-1", "cv.txt", "text/plain", strings.NewReader("• Go developer\u200b\r\n\r\n\r\n\r\nLondon"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.ExtractStatus != ExtractDone {
		t.Fatalf("status = %s (%s)", f.ExtractStatus, f.ExtractError)
	}
	if f.ExtractedText != "- Go developer\n\nLondon" {
		t.Fatalf("text = %q", f.ExtractedText)
	}
	if f.SanitizeReport == nil || f.SanitizeReport.Rules["bullets"] != 1 {
		t.Fatalf("report = %+v", f.SanitizeReport)
	}

	text, err := svc.Text(ctx, "user-1", f.ID)
	if err != nil || text != f.ExtractedText {
		t.Fatalf("Text() = %q, %v", text, err)
	}
	if _, err := svc.Text(ctx, "user-2", f.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user to get ErrNotFound, got %v", err)
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Upload(context.Background(), "user-1", "photo.png", "image/png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestUploadRecordsExtractionFailure(t *testing.T) {
	svc, _ := newTestService(t)
	f, err := svc.Upload(context.Background(), "user-1", "broken.pdf", "application/pdf", strings.NewReader("not a pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if f.ExtractStatus != ExtractFailed || f.ExtractError == "" {
		t.Fatalf("expected failed extraction, got %s %q", f.ExtractStatus, f.ExtractError)
	}
	if _, err := svc.Text(context.Background(), "user-1", f.ID); !errors.Is(err, ErrNotExtracted) {
		t.Fatalf("expected ErrNotExtracted, got %v", err)
	}
}

func TestDeleteRemovesObjects(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	f, err := svc.Upload(ctx, "user-1", "cv.txt", "", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.Delete(ctx, "user-1", f.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", f.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted file to be gone, got %v", err)
	}
	if _, err := store.Open(ctx, f.StorageKey); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected object removed, got %v", err)
	}
	if _, err := store.Open(ctx, f.StorageKey+".extracted.txt"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected derived object removed, got %v", err)
	}
}

func TestListNewestFirstAndClaimGuest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := svc.Upload(ctx, "guest:g1", name, "text/plain", strings.NewReader("text of "+name)); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	moved, err := svc.ClaimGuest(ctx, "guest:g1", "user-1")
	if err != nil || moved != 3 {
		t.Fatalf("ClaimGuest = %d, %v", moved, err)
	}
	list, err := svc.List(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].FileName != "c.txt" || list[1].FileName != "b.txt" {
		t.Fatalf("unexpected page: %+v", list)
	}
}

func TestPresignUnavailableOnLocalStore(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.PresignUpload(context.Background(), "user-1", "cv.pdf", "application/pdf", 100); !errors.Is(err, ErrPresignUnavailable) {
		t.Fatalf("expected ErrPresignUnavailable, got %v", err)
	}
}

type fakePresignStore struct {
	*local.Store
	stat object.Object
}

func (f *fakePresignStore) PresignPut(ctx context.Context, userID, fileName, contentType string, ttl time.Duration) (object.PresignedUpload, error) {
	key, err := object.NewKey(userID, fileName)
	if err != nil {
		return object.PresignedUpload{}, err
	}
	return object.PresignedUpload{URL: "https://uploads.example/" + key, Key: key, ExpiresIn: ttl}, nil
}

func (f *fakePresignStore) Stat(ctx context.Context, key string) (object.Object, error) {
	rc, err := f.Store.Open(ctx, key)
	if err != nil {
		return object.Object{}, err
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if f.stat.Size > 0 {
		return f.stat, nil
	}
	return object.Object{Key: key, Size: int64(len(data))}, nil
}

func TestPresignAndComplete(t *testing.T) {
	ctx := context.Background()
	store := &fakePresignStore{Store: local.New(t.TempDir())}
	svc := NewService(store, NewMemoryRepo())

	up, err := svc.PresignUpload(ctx, "user-1", "cv.txt", "text/plain", 11)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if _, err := svc.PresignUpload(ctx, "user-1", "cv.txt", "text/plain", MaxUploadBytes+1); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	// Simulate the browser PUT.
	if _, err := store.PutKey(ctx, up.Key, "text/plain", strings.NewReader("hello world")); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := svc.CompleteUpload(ctx, "user-2", up.Key, "cv.txt", "text/plain"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected foreign key to be rejected, got %v", err)
	}
	f, err := svc.CompleteUpload(ctx, "user-1", up.Key, "cv.txt", "text/plain")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.SizeBytes != 11 || f.ExtractedText != "hello world" {
		t.Fatalf("unexpected file %+v", f)
	}
}

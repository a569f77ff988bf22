package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvbuilder/internal/extract"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/storage/object"
	"cvbuilder/internal/shared/telemetry"
)

const (
	MaxUploadBytes = 10 << 20
	presignTTL     = 15 * time.Minute
	maxErrorLen    = 500
)

var allowedTypes = map[string]struct{}{
	extract.MimePDF:  {},
	extract.MimeDOCX: {},
	extract.MimeText: {},
}

// Service contains business logic for uploaded files.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	Now   func() time.Time
}

// NewService constructs a Service.
func NewService(store object.ObjectStore, repo Repo) *Service {
	return &Service{Store: store, Repo: repo, Now: time.Now}
}

// Upload stores the file, records it and extracts its text synchronously.
// Extraction failures are recorded on the file rather than returned.
func (s *Service) Upload(ctx context.Context, userID, fileName, declaredType string, r io.Reader) (File, error) {
	fileName = strings.TrimSpace(fileName)
	if userID == "" || fileName == "" {
		return File{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	mimeType, err := allowedMime(declaredType, fileName)
	if err != nil {
		return File{}, err
	}

	obj, err := s.Store.Put(ctx, userID, fileName, r)
	if err != nil {
		if errors.Is(err, object.ErrInvalidKey) {
			return File{}, fmt.Errorf("%w: invalid file name", ErrInvalidInput)
		}
		return File{}, fmt.Errorf("store file: %w", err)
	}

	f := File{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      fileName,
		MimeType:      mimeType,
		SizeBytes:     obj.Size,
		StorageKey:    obj.Key,
		ExtractStatus: ExtractPending,
		CreatedAt:     s.now(),
	}
	if err := s.Repo.Create(ctx, f); err != nil {
		_ = s.Store.Delete(ctx, obj.Key)
		return File{}, fmt.Errorf("create file: %w", err)
	}
	return s.runExtraction(ctx, f)
}

// PresignUpload returns a URL the browser can upload directly to.
func (s *Service) PresignUpload(ctx context.Context, userID, fileName, contentType string, size int64) (object.PresignedUpload, error) {
	presigner, ok := s.Store.(object.Presigner)
	if !ok {
		return object.PresignedUpload{}, ErrPresignUnavailable
	}
	if strings.TrimSpace(fileName) == "" {
		return object.PresignedUpload{}, fmt.Errorf("%w: fileName is required", ErrInvalidInput)
	}
	if size <= 0 || size > MaxUploadBytes {
		return object.PresignedUpload{}, ErrTooLarge
	}
	mimeType, err := allowedMime(contentType, fileName)
	if err != nil {
		return object.PresignedUpload{}, err
	}
	return presigner.PresignPut(ctx, userID, fileName, mimeType, presignTTL)
}

// CompleteUpload registers an object uploaded through a presigned URL.
func (s *Service) CompleteUpload(ctx context.Context, userID, key, fileName, contentType string) (File, error) {
	presigner, ok := s.Store.(object.Presigner)
	if !ok {
		return File{}, ErrPresignUnavailable
	}
	key = strings.TrimSpace(key)
	if key == "" || !strings.HasPrefix(key, object.UserPrefix(userID)) {
		return File{}, fmt.Errorf("%w: key does not belong to user", ErrInvalidInput)
	}
	mimeType, err := allowedMime(contentType, fileName)
	if err != nil {
		return File{}, err
	}
	obj, err := presigner.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return File{}, ErrNotFound
		}
		return File{}, fmt.Errorf("stat upload: %w", err)
	}
	if obj.Size > MaxUploadBytes {
		_ = s.Store.Delete(ctx, key)
		return File{}, ErrTooLarge
	}

	f := File{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      strings.TrimSpace(fileName),
		MimeType:      mimeType,
		SizeBytes:     obj.Size,
		StorageKey:    key,
		ExtractStatus: ExtractPending,
		CreatedAt:     s.now(),
	}
	if err := s.Repo.Create(ctx, f); err != nil {
		return File{}, fmt.Errorf("create file: %w", err)
	}
	return s.runExtraction(ctx, f)
}

func (s *Service) runExtraction(ctx context.Context, f File) (File, error) {
	res, err := extract.ExtractText(ctx, s.Store, f.StorageKey, f.MimeType, f.FileName)
	if err != nil {
		msg := err.Error()
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
		telemetry.Warn("file.extract_failed", map[string]any{"fileId": f.ID, "err": msg})
		f.ExtractStatus = ExtractFailed
		f.ExtractError = msg
	} else {
		metrics.AddSanitizeHits(res.Report.Rules)
		f.ExtractStatus = ExtractDone
		f.ExtractedText = res.Text
		report := res.Report
		f.SanitizeReport = &report
	}
	if err := s.Repo.UpdateExtraction(ctx, f.UserID, f.ID, f.ExtractStatus, f.ExtractedText, f.ExtractError, f.SanitizeReport); err != nil {
		return File{}, fmt.Errorf("record extraction: %w", err)
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (File, error) {
	return s.Repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]File, error) {
	return s.Repo.List(ctx, userID, limit, offset)
}

// Text returns the sanitized text of a file.
func (s *Service) Text(ctx context.Context, userID, id string) (string, error) {
	f, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if f.ExtractStatus != ExtractDone || f.ExtractedText == "" {
		return "", ErrNotExtracted
	}
	return f.ExtractedText, nil
}

// Open streams the original upload.
func (s *Service) Open(ctx context.Context, userID, id string) (File, io.ReadCloser, error) {
	f, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return File{}, nil, err
	}
	rc, err := s.Store.Open(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return File{}, nil, ErrNotFound
		}
		return File{}, nil, err
	}
	return f, rc, nil
}

// Delete soft-deletes the row and removes the stored objects.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	f, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, userID, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, f.StorageKey)
	return nil
}

// ClaimGuest moves a guest's files to a signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error) {
	return s.Repo.ClaimGuest(ctx, guestUserID, userID)
}

// DeleteAll removes every file row and stored object of a user.
func (s *Service) DeleteAll(ctx context.Context, userID string) (int, error) {
	keys, err := s.Repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		s.deleteObjects(ctx, key)
	}
	return len(keys), nil
}

func (s *Service) deleteObjects(ctx context.Context, key string) {
	for _, k := range []string{key, key + ".extracted.txt"} {
		if err := s.Store.Delete(ctx, k); err != nil {
			telemetry.Warn("file.object_delete_failed", map[string]any{"key": k, "err": err})
		}
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func allowedMime(declared, fileName string) (string, error) {
	mimeType := extract.NormalizeMimeType(declared, fileName, nil)
	if _, ok := allowedTypes[mimeType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return mimeType, nil
}

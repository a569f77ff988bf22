package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"cvbuilder/internal/shared/util"
)

var (
	ErrInvalidKey     = errors.New("invalid storage key")
	ErrNotFound       = errors.New("object not found")
	ErrPresignMissing = errors.New("presigned uploads not supported by this store")
)

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore is the contract for saving and retrieving user files.
type ObjectStore interface {
	// Put stores r under a fresh key in the user's namespace.
	Put(ctx context.Context, userID, fileName string, r io.Reader) (Object, error)
	// PutKey stores r at an exact key, used for derived artifacts.
	PutKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// PresignedUpload is a URL the browser can PUT a file to directly.
type PresignedUpload struct {
	URL       string
	Key       string
	ExpiresIn time.Duration
}

// Presigner is implemented by stores that support direct browser uploads.
type Presigner interface {
	PresignPut(ctx context.Context, userID, fileName, contentType string, ttl time.Duration) (PresignedUpload, error)
	Stat(ctx context.Context, key string) (Object, error)
}

// NewKey builds a storage key of the form <hashed user>/<uuid>_<file name>.
func NewKey(userID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(userID), uuid.NewString()+"_"+name), nil
}

// UserPrefix is the key prefix of every object a user owns.
func UserPrefix(userID string) string {
	return util.HashUserKey(userID) + "/"
}

// Sniff reads the first 512 bytes to detect the content type and returns a
// reader that replays them.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	return contentType, io.MultiReader(bytes.NewReader(head[:n]), r), nil
}

package media

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrInvalidImage = errors.New("invalid image payload")

// Uploader stores an image and returns the URL it is served under.
type Uploader interface {
	Upload(ctx context.Context, image string) (string, error)
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskUploader writes base64 data URLs under dir and serves them from publicPath.
type DiskUploader struct {
	dir        string
	publicPath string
}

func NewDiskUploader(dir, publicPath string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media dir")
	}
	return &DiskUploader{dir: dir, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

func (u *DiskUploader) Upload(ctx context.Context, image string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mime, payload, err := parseDataURL(image)
	if err != nil {
		return "", err
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", ErrInvalidImage
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(u.dir, name), payload, 0o644); err != nil {
		return "", errors.Wrap(err, "write image")
	}
	return u.publicPath + "/" + name, nil
}

// parseDataURL splits data:<mime>;base64,<payload>.
func parseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidImage
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || mime == "" {
		return "", nil, ErrInvalidImage
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) == 0 {
		return "", nil, ErrInvalidImage
	}
	return strings.ToLower(mime), payload, nil
}

package filestorage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cozy-creator/influencer-studio/internal/config"
)

var ErrEmptyContent = errors.New("file content is empty")

type FileInfo struct {
	Name        string
	Extension   string
	Folder      string
	Content     []byte
	ContentType string
}

// Key is the object path relative to the storage root, e.g. "videos/abc123.mp4".
func (f FileInfo) Key() string {
	filename := f.Name
	if f.Extension != "" {
		filename += "." + strings.TrimPrefix(f.Extension, ".")
	}
	if f.Folder == "" {
		return filename
	}
	return path.Join(f.Folder, filename)
}

type FileStorage interface {
	Upload(ctx context.Context, file FileInfo) (string, error)
}

func NewFileStorage(cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.FilesystemType) {
	case config.FilesystemLocal:
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.FilesystemType)
}

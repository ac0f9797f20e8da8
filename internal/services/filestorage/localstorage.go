package filestorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/influencer-studio/internal/config"
)

// LocalFilesRoute is where the server exposes the assets directory.
const LocalFilesRoute = "/files"

type LocalFileStorage struct {
	assetsDir string
	baseURL   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	if cfg.AssetsDir == "" {
		return nil, fmt.Errorf("assets directory is not set")
	}

	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		baseURL:   strings.TrimSuffix(cfg.PublicURL, "/") + LocalFilesRoute,
	}, nil
}

func (s *LocalFileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	if len(file.Content) == 0 {
		return "", ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := file.Key()
	filedest := filepath.Join(s.assetsDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(filedest), os.ModePerm); err != nil {
		return "", err
	}

	// O_EXCL keeps an upload from overwriting an existing object.
	f, err := os.OpenFile(filedest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(file.Content); err != nil {
		return "", fmt.Errorf("failed to save content to file: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

func (s *LocalFileStorage) AssetsDir() string {
	return s.assetsDir
}

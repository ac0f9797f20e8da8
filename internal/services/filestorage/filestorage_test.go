package filestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileInfoKey(t *testing.T) {
	assert.Equal(t, "videos/abc.mp4", FileInfo{Name: "abc", Extension: "mp4", Folder: "videos"}.Key())
	assert.Equal(t, "videos/abc.mp4", FileInfo{Name: "abc", Extension: ".mp4", Folder: "videos"}.Key())
	assert.Equal(t, "abc", FileInfo{Name: "abc"}.Key())
}

func TestLocalUpload(t *testing.T) {
	cfg := config.Default()
	cfg.AssetsDir = t.TempDir()
	cfg.PublicURL = "http://studio.test/"

	storage, err := NewLocalFileStorage(cfg)
	require.NoError(t, err)

	url, err := storage.Upload(context.Background(), FileInfo{
		Name:      "abc123",
		Extension: "png",
		Folder:    "images",
		Content:   []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://studio.test/files/images/abc123.png", url)

	content, err := os.ReadFile(filepath.Join(cfg.AssetsDir, "images", "abc123.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestLocalUploadNeverOverwrites(t *testing.T) {
	cfg := config.Default()
	cfg.AssetsDir = t.TempDir()
	storage, err := NewLocalFileStorage(cfg)
	require.NoError(t, err)

	file := FileInfo{Name: "same", Extension: "png", Folder: "images", Content: []byte("a")}
	_, err = storage.Upload(context.Background(), file)
	require.NoError(t, err)
	_, err = storage.Upload(context.Background(), file)
	assert.Error(t, err)
}

func TestLocalUploadRejectsEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.AssetsDir = t.TempDir()
	storage, err := NewLocalFileStorage(cfg)
	require.NoError(t, err)

	_, err = storage.Upload(context.Background(), FileInfo{Name: "x", Extension: "png"})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestS3PublicURL(t *testing.T) {
	s := &S3FileStorage{cfg: config.S3Config{Bucket: "media", PublicURL: "https://cdn.example.com/"}}
	url, err := s.publicURL("videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/a.mp4", url)

	s = &S3FileStorage{cfg: config.S3Config{Bucket: "media", Region: "nyc3", EndpointURL: "https://nyc3.digitaloceanspaces.com"}}
	url, err = s.publicURL("videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://media.nyc3.cdn.digitaloceanspaces.com/videos/a.mp4", url)

	s = &S3FileStorage{cfg: config.S3Config{Bucket: "media", EndpointURL: "https://acct.r2.cloudflarestorage.com"}}
	_, err = s.publicURL("videos/a.mp4")
	assert.Error(t, err)
}

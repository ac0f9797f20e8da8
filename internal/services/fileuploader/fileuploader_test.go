package fileuploader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/cozy-creator/influencer-studio/internal/services/filestorage"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	mu    sync.Mutex
	files map[string]filestorage.FileInfo
	err   error
}

func (m *memoryStorage) Upload(_ context.Context, file filestorage.FileInfo) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string]filestorage.FileInfo{}
	}
	m.files[file.Key()] = file
	return "https://store.test/" + file.Key(), nil
}

type memoryBridge struct {
	mu      sync.Mutex
	uploads map[string]string
}

func (b *memoryBridge) UploadBytes(_ context.Context, content []byte, filename, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploads == nil {
		b.uploads = map[string]string{}
	}
	b.uploads[filename] = contentType
	return "https://bridge.test/" + string(content), nil
}

func newSourceServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/missing"):
			http.NotFound(w, r)
		default:
			w.Write([]byte(strings.TrimPrefix(r.URL.Path, "/")))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

var keyPattern = regexp.MustCompile(`^videos/[0-9a-f]{12}\.mp4$`)

func TestUploadFromURL(t *testing.T) {
	srv := newSourceServer(t)
	storage := &memoryStorage{}
	uploader := NewFileUploader(storage, 2)
	defer uploader.Stop()

	first, err := uploader.UploadFromURL(context.Background(), srv.URL+"/clip.mp4", CategoryVideos, "mp4")
	require.NoError(t, err)
	second, err := uploader.UploadFromURL(context.Background(), srv.URL+"/clip.mp4", CategoryVideos, "mp4")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "every upload gets a new name")
	require.Len(t, storage.files, 2)
	for key, file := range storage.files {
		assert.Regexp(t, keyPattern, key)
		assert.Equal(t, "video/mp4", file.ContentType)
		assert.Equal(t, "clip.mp4", string(file.Content))
	}
}

func TestUploadFromURLSourceFailure(t *testing.T) {
	srv := newSourceServer(t)
	uploader := NewFileUploader(&memoryStorage{}, 1)
	defer uploader.Stop()

	_, err := uploader.UploadFromURL(context.Background(), srv.URL+"/missing.mp4", CategoryVideos, "mp4")
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestUploadFromURLRejectsOversizedSource(t *testing.T) {
	srv := newSourceServer(t)
	storage := &memoryStorage{}
	uploader := NewFileUploader(storage, 1).WithMaxDownloadSize(int64(len("clip.mp4")))
	defer uploader.Stop()

	_, err := uploader.UploadFromURL(context.Background(), srv.URL+"/clip.mp4", CategoryVideos, "mp4")
	require.NoError(t, err, "a body exactly at the limit is accepted")

	_, err = uploader.UploadFromURL(context.Background(), srv.URL+"/longer-clip.mp4", CategoryVideos, "mp4")
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.Len(t, storage.files, 1)
}

func TestUploadBytesDestinationFailure(t *testing.T) {
	uploader := NewFileUploader(&memoryStorage{err: errors.New("bucket gone")}, 1)
	defer uploader.Stop()

	_, err := uploader.UploadBytes(context.Background(), []byte("x"), CategoryUploads, "png")
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestBridgeKeepsOrder(t *testing.T) {
	srv := newSourceServer(t)
	uploader := NewFileUploader(&memoryStorage{}, 4)
	defer uploader.Stop()
	bridge := &memoryBridge{}

	urls, err := uploader.Bridge(context.Background(), bridge, srv.URL+"/face.png", srv.URL+"/drive.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://bridge.test/face.png", "https://bridge.test/drive.mp4"}, urls)

	seen := map[string]bool{}
	for _, ct := range bridge.uploads {
		seen[ct] = true
	}
	assert.True(t, seen["image/png"])
	assert.True(t, seen["video/mp4"])
}

func TestBridgeFailsWhenAnySourceFails(t *testing.T) {
	srv := newSourceServer(t)
	uploader := NewFileUploader(&memoryStorage{}, 2)
	defer uploader.Stop()

	_, err := uploader.Bridge(context.Background(), &memoryBridge{}, srv.URL+"/face.png", srv.URL+"/missing.mp4")
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeFor("mp4"))
	assert.Equal(t, "image/png", ContentTypeFor(".PNG"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("jpg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("gif"))
	assert.Equal(t, "png", ExtensionFromURL("https://v3.fal.media/files/x/abc.PNG?sig=1"))
}

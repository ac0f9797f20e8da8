package fileuploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cozy-creator/influencer-studio/internal/services/filestorage"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/cozy-creator/influencer-studio/internal/utils/randutil"
	"github.com/gammazero/workerpool"
)

type Category string

const (
	CategoryImages  Category = "images"
	CategoryVideos  Category = "videos"
	CategoryUploads Category = "uploads"
)

const DefaultMaxDownloadSize = 512 << 20

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ExtensionFromURL returns the lowercase extension of the URL path without the dot.
func ExtensionFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
}

// BridgeTarget is storage owned by a downstream provider, used when that
// provider cannot read our public URLs.
type BridgeTarget interface {
	UploadBytes(ctx context.Context, content []byte, filename, contentType string) (string, error)
}

type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
	client      *http.Client
	maxDownload int64
}

func NewFileUploader(filestorage filestorage.FileStorage, maxWorkers int) *Uploader {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &Uploader{
		wp:          workerpool.New(maxWorkers),
		filestorage: filestorage,
		client:      &http.Client{Timeout: 5 * time.Minute},
		maxDownload: DefaultMaxDownloadSize,
	}
}

func (u *Uploader) WithHTTPClient(client *http.Client) *Uploader {
	u.client = client
	return u
}

// WithMaxDownloadSize caps how many bytes Download accepts from a source.
func (u *Uploader) WithMaxDownloadSize(n int64) *Uploader {
	u.maxDownload = n
	return u
}

func (u *Uploader) Stop() {
	u.wp.StopWait()
}

// UploadFromURL downloads sourceURL and stores it under a fresh opaque name.
func (u *Uploader) UploadFromURL(ctx context.Context, sourceURL string, category Category, ext string) (string, error) {
	content, err := u.Download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	return u.UploadBytes(ctx, content, category, ext)
}

// UploadBytes stores content under "<category>/<12 hex chars>.<ext>". Every
// call writes a new object.
func (u *Uploader) UploadBytes(ctx context.Context, content []byte, category Category, ext string) (string, error) {
	if u.filestorage == nil {
		return "", fmt.Errorf("%w: file storage is not configured", types.ErrStorage)
	}

	name, err := randutil.RandomHex(6)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrStorage, err)
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	url, err := u.filestorage.Upload(ctx, filestorage.FileInfo{
		Name:        name,
		Extension:   ext,
		Folder:      string(category),
		Content:     content,
		ContentType: ContentTypeFor(ext),
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload failed: %v", types.ErrStorage, err)
	}

	return url, nil
}

// Bridge copies every URL into target concurrently on the worker pool. The
// returned URLs keep the input order; the first failure is returned.
func (u *Uploader) Bridge(ctx context.Context, target BridgeTarget, urls ...string) ([]string, error) {
	results := make([]string, len(urls))
	errs := make([]error, len(urls))

	var wg sync.WaitGroup
	for i, src := range urls {
		wg.Add(1)
		u.wp.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = u.bridgeOne(ctx, target, src)
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (u *Uploader) bridgeOne(ctx context.Context, target BridgeTarget, src string) (string, error) {
	content, err := u.Download(ctx, src)
	if err != nil {
		return "", err
	}

	ext := ExtensionFromURL(src)
	name, err := randutil.RandomHex(6)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	filename := name
	if ext != "" {
		filename += "." + ext
	}

	bridged, err := target.UploadBytes(ctx, content, filename, ContentTypeFor(ext))
	if err != nil {
		return "", fmt.Errorf("%w: bridge upload failed: %v", types.ErrStorage, err)
	}

	return bridged, nil
}

func (u *Uploader) Download(ctx context.Context, sourceURL string) ([]byte, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: source url is empty", types.ErrStorage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid source url: %v", types.ErrStorage, err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download %s: %v", types.ErrStorage, sourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: failed to download %s: status %d", types.ErrStorage, sourceURL, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, u.maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", types.ErrStorage, sourceURL, err)
	}
	if int64(len(content)) > u.maxDownload {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", types.ErrStorage, sourceURL, u.maxDownload)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s returned no content", types.ErrStorage, sourceURL)
	}

	return content, nil
}

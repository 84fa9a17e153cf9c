// Package fetch downloads fixture sources and unpacks archives.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 2 * time.Minute

// maxDownloadSize is the largest body accepted from a remote source (512MB)
const maxDownloadSize = 512 * 1024 * 1024

var (
	// ErrRequestFailed is returned for non-2xx responses
	ErrRequestFailed = errors.New("fetch: request failed")

	// ErrTooLarge is returned when a body exceeds maxDownloadSize
	ErrTooLarge = errors.New("fetch: response too large")

	// ErrUnsupportedScheme is returned for sources that are neither http(s), file nor a local path
	ErrUnsupportedScheme = errors.New("fetch: unsupported source scheme")
)

// Downloader fetches sources given as http(s) URLs, file:// URLs or paths.
type Downloader struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewDownloader creates a downloader. A non-positive timeout uses DefaultTimeout.
func NewDownloader(timeout time.Duration, logger *zap.Logger) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Open returns a reader for src. The caller closes it.
func (d *Downloader) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return os.Open(src)
	}

	switch u.Scheme {
	case "file":
		return os.Open(filepath.FromSlash(u.Path))
	case "http", "https":
		return d.get(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (d *Downloader) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", ErrRequestFailed, rawURL, resp.StatusCode)
	}

	d.logger.Debug("Download started",
		zap.String("url", rawURL),
		zap.Int64("content_length", resp.ContentLength),
		zap.Duration("latency", time.Since(start)))

	return &limitedBody{r: io.LimitReader(resp.Body, maxDownloadSize+1), c: resp.Body}, nil
}

type limitedBody struct {
	r io.Reader
	c io.Closer
	n int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	if b.n > maxDownloadSize {
		return n, ErrTooLarge
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.c.Close() }

// DownloadToTemp copies src into a new temporary file whose name matches
// pattern (see os.CreateTemp) and returns its path. The caller removes it.
func (d *Downloader) DownloadToTemp(ctx context.Context, src, pattern string) (string, error) {
	body, err := d.Open(ctx, src)
	if err != nil {
		return "", err
	}
	defer body.Close()

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("downloading %s: %w", src, err)
	}

	d.logger.Info("Downloaded",
		zap.String("source", redact(src)),
		zap.String("path", f.Name()),
		zap.Int64("bytes", n))
	return f.Name(), nil
}

// redact drops credentials from URLs before they are logged.
func redact(src string) string {
	u, err := url.Parse(src)
	if err != nil || u.User == nil {
		return src
	}
	return u.Redacted()
}

// IsRemote reports whether src is fetched over HTTP.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

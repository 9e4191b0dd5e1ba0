package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"time"
)

var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// DownloadFile starts a GET for url and returns the response body. The
// caller closes it.
func DownloadFile(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// DownloadToTemp saves url to a temporary CSV file and returns its path
// together with a cleanup func that removes it. A timeout of zero falls back
// to the client's own timeout.
func DownloadToTemp(ctx context.Context, url string, timeout time.Duration) (string, func(), error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := DownloadFile(ctx, url)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	f, err := os.CreateTemp("", "warehouse-*.csv")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to save download: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to save download: %w", err)
	}

	return f.Name(), cleanup, nil
}

// FilenameFromURL returns the last path segment of rawURL, or
// "download.csv" when it has none.
func FilenameFromURL(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "download.csv"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download.csv"
	}
	return name
}

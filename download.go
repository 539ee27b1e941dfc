package tarot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// maxImageBytes caps a downloaded card; flux PNGs are a few MiB.
const maxImageBytes = 32 << 20

// Downloader fetches a generated card and keeps a PNG copy at a fixed path.
// Every successful download overwrites the previous file.
type Downloader struct {
	httpClient *http.Client
	path       string
}

func NewDownloader(httpClient *http.Client, path string) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Downloader{httpClient: httpClient, path: path}
}

func (d *Downloader) Path() string { return d.path }

// Download returns the card as PNG bytes. Any failure is a *DownloadError.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := d.download(ctx, url)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}

	return data, nil
}

func (d *Downloader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	if len(raw) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode png")
	}

	if d.path != "" {
		if err := SavePNG(buf.Bytes(), d.path); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// SavePNG replaces the file at p with data. Each call writes its own temp
// file next to p and renames it into place, so concurrent saves never see
// each other's partial writes.
func SavePNG(data []byte, p string) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithMessage(err, "failed to create image dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".*.tmp")
	if err != nil {
		return errors.WithMessage(err, "failed to create temp png")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WithMessage(err, "failed to write png")
	}
	if err = tmp.Close(); err != nil {
		return errors.WithMessage(err, "failed to close png")
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.WithMessage(err, "failed to chmod png")
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return errors.WithMessage(err, "failed to replace png")
	}

	return nil
}

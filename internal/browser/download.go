package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// maxDownload limita o tamanho de arquivos de dados (CSV/PDF) baixados.
const maxDownload = 64 << 20

type Downloader struct {
	client *http.Client
	log    logrus.FieldLogger
}

func NewDownloader(client *http.Client, log logrus.FieldLogger) *Downloader {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Downloader{client: client, log: log}
}

func (d *Downloader) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	d.log.WithField("url", url).Info("downloading file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to download file: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if len(body) > maxDownload {
		return nil, fmt.Errorf("download %s: file exceeds %d bytes", url, maxDownload)
	}
	d.log.WithField("bytes", len(body)).Info("downloaded file")
	return body, nil
}

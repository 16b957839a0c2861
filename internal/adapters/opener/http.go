package opener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gold_debts/internal/ports"

	"go.uber.org/zap"
)

type HTTPOpener struct {
	Client *http.Client
	Logger *zap.Logger
}

func NewHTTPOpener(cli *http.Client, logger *zap.Logger) *HTTPOpener {
	if cli == nil {
		cli = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPOpener{Client: cli, Logger: logger}
}

func (h *HTTPOpener) Open(ctx context.Context, url string) (io.ReadCloser, ports.Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		h.Logger.Warn("http source rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", ct),
		)
		return nil, ports.Meta{}, fmt.Errorf("http status %d", resp.StatusCode)
	}
	size := resp.ContentLength
	if size < 0 {
		size = -1
	}
	h.Logger.Debug("http source opened", zap.String("url", url), zap.String("content_type", ct), zap.Int64("size", size))
	return resp.Body, ports.Meta{
		Source:      "https",
		ContentType: ct,
		Size:        size,
	}, nil
}

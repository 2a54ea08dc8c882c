package gpxfile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/config"
	"github.com/circuit-microservice/internal/domain/repository"
)

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient создает загрузчик опубликованных GPX файлов.
// Если base URL не задан, файлы читаются с локального диска -
// так работает офлайновый CLI.
func NewClient(cfg *config.GPXConfig, logger *zap.Logger) repository.GPXFileRepository {
	return &client{
		httpClient: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		baseURL: strings.TrimSuffix(cfg.FileBaseURL, "/"),
		logger:  logger,
	}
}

// Fetch возвращает содержимое GPX файла по относительному пути
func (c *client) Fetch(ctx context.Context, path string) ([]byte, error) {
	if c.baseURL == "" {
		return c.fetchLocal(path)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GPX request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("GPX fetch failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch GPX file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("GPX fetch returned non-200",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("GPX fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GPX response: %w", err)
	}

	c.logger.Debug("GPX file fetched",
		zap.String("path", path),
		zap.Int("bytes", len(data)))

	return data, nil
}

func (c *client) fetchLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		c.logger.Error("Failed to read local GPX file", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to read GPX file: %w", err)
	}
	return data, nil
}

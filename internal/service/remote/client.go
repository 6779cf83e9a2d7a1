// Package remote содержит общий HTTP-клиент для справочных сервисов (user-service, inventory-service).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBodyBytes  = 4 << 10
)

// ErrEmptyBaseURL возвращается при создании клиента без адреса сервиса.
var ErrEmptyBaseURL = errors.New("remote: base url is required")

// Result описывает ответ справочного сервиса на GET по ресурсу.
type Result struct {
	// Found: сервис ответил 2xx.
	Found bool
	// StatusCode: HTTP-статус ответа.
	StatusCode int
	// Message: поле "error" из JSON-ответа, если сервис его прислал.
	Message string
}

// Client выполняет GET-запросы к справочному сервису.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиент для baseURL. httpClient может быть nil.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Entry) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = log.WithField("component", "remote-client")
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// BaseURL возвращает нормализованный адрес сервиса.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Lookup выполняет GET baseURL+path. Ошибка возвращается только при сбое транспорта;
// любой ответ сервиса (включая 4xx/5xx) описывается Result.
func (c *Client) Lookup(ctx context.Context, path string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	result := Result{
		Found:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
	}
	if result.Found {
		_, _ = io.Copy(io.Discard, resp.Body)
		return result, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	result.Message = errorMessage(body)

	c.logger.WithFields(log.Fields{
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("remote lookup returned non-2xx")

	return result, nil
}

// Ping проверяет доступность сервиса через его /health.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.Lookup(ctx, "/health")
	if err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("health returned status %d", res.StatusCode)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}

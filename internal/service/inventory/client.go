package inventory

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
	"github.com/vladislavdragonenkov/order-service/internal/service/remote"
)

const (
	productPathPrefix = "/api/v1/inventory/"

	msgProductNotFound    = "Product not found"
	msgServiceUnavailable = "inventory service unavailable"
)

// Client проверяет существование товаров в inventory-service по HTTP.
type Client struct {
	remote *remote.Client
	logger *log.Entry
}

// NewClient создаёт клиент inventory-service. httpClient может быть nil.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Entry) (*Client, error) {
	if logger == nil {
		logger = log.WithField("component", "inventory-client")
	}
	rc, err := remote.NewClient(baseURL, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return &Client{remote: rc, logger: logger}, nil
}

// CheckProduct выполняет GET /api/v1/inventory/{productID}. 2xx означает, что товар есть;
// любой другой ответ или ошибка транспорта означает, что товара нет.
func (c *Client) CheckProduct(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return domain.NewProductValidationError(productID, msgProductNotFound, nil)
	}

	res, err := c.remote.Lookup(ctx, productPathPrefix+url.PathEscape(productID))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.WithError(err).WithField("product_id", productID).Warn("inventory service request failed")
		return domain.NewProductValidationError(productID, msgServiceUnavailable, err)
	}
	if res.Found {
		return nil
	}

	message := res.Message
	if message == "" {
		message = msgProductNotFound
	}
	return domain.NewProductValidationError(productID, message, nil)
}

// Ping проверяет /health inventory-service.
func (c *Client) Ping(ctx context.Context) error {
	return c.remote.Ping(ctx)
}

var _ domain.ProductCatalog = (*Client)(nil)

// Package users проверяет существование пользователей в user-service.
package users

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
	userPathPrefix = "/api/v1/users/"

	msgUserNotFound       = "User not found"
	msgServiceUnavailable = "user service unavailable"
)

// Client проверяет пользователей в user-service по HTTP.
type Client struct {
	remote *remote.Client
	logger *log.Entry
}

// NewClient создаёт клиент user-service. httpClient может быть nil.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Entry) (*Client, error) {
	if logger == nil {
		logger = log.WithField("component", "user-client")
	}
	rc, err := remote.NewClient(baseURL, httpClient, logger)
	if err != nil {
		return nil, err
	}
	return &Client{remote: rc, logger: logger}, nil
}

// CheckUser выполняет GET /api/v1/users/{userID}.
// Ошибки контекста возвращаются как есть, остальные сбои превращаются в ValidationError.
func (c *Client) CheckUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewUserValidationError(userID, msgUserNotFound, nil)
	}

	res, err := c.remote.Lookup(ctx, userPathPrefix+url.PathEscape(userID))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.WithError(err).WithField("user_id", userID).Warn("user service request failed")
		return domain.NewUserValidationError(userID, msgServiceUnavailable, err)
	}
	if res.Found {
		return nil
	}

	message := res.Message
	if message == "" {
		message = msgUserNotFound
	}
	return domain.NewUserValidationError(userID, message, nil)
}

// Ping проверяет /health user-service.
func (c *Client) Ping(ctx context.Context) error {
	return c.remote.Ping(ctx)
}

var _ domain.UserDirectory = (*Client)(nil)

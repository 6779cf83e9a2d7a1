package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/order-service/internal/idgen"
)

// Config описывает настройки запуска order-service.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	UserServiceURL      string
	InventoryServiceURL string
	// CheckTimeout ограничивает одну проверку существования. 0 отключает ограничение.
	CheckTimeout time.Duration

	IDStrategy idgen.Strategy
	IDPrefix   string

	// При пустом KafkaBrokers события order.created не публикуются.
	KafkaBrokers []string

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3000",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		UserServiceURL:      "http://localhost:5000",
		InventoryServiceURL: "http://localhost:4000",
		CheckTimeout:        5 * time.Second,
		IDStrategy:          idgen.StrategyUUID,
		IDPrefix:            idgen.DefaultPrefix,
		ShutdownTimeout:     5 * time.Second,
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if strings.TrimSpace(c.GRPCAddr) == "" {
		errs = append(errs, errors.New("grpc addr is required"))
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		errs = append(errs, errors.New("metrics addr is required"))
	}
	if err := validateServiceURL(c.UserServiceURL); err != nil {
		errs = append(errs, fmt.Errorf("user service url: %w", err))
	}
	if err := validateServiceURL(c.InventoryServiceURL); err != nil {
		errs = append(errs, fmt.Errorf("inventory service url: %w", err))
	}
	if c.CheckTimeout < 0 {
		errs = append(errs, errors.New("check timeout must be >= 0"))
	}
	if c.IDStrategy != "" {
		if _, err := idgen.ParseStrategy(string(c.IDStrategy)); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServiceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/order-service/internal/app"
	"github.com/vladislavdragonenkov/order-service/internal/idgen"
)

const (
	envHTTPAddr            = "OMS_HTTP_ADDR"
	envPort                = "PORT"
	envGRPCAddr            = "OMS_GRPC_ADDR"
	envMetricsAddr         = "OMS_METRICS_ADDR"
	envUserServiceURL      = "USER_SERVICE_URL"
	envInventoryServiceURL = "INVENTORY_SERVICE_URL"
	envCheckTimeout        = "OMS_CHECK_TIMEOUT"
	envIDStrategy          = "OMS_ID_STRATEGY"
	envIDPrefix            = "OMS_ID_PREFIX"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envShutdownTimeout     = "OMS_SHUTDOWN_TIMEOUT"
	envLogLevel            = "OMS_LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения игнорируются с предупреждением.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("ignoring %s=%q: %v", key, raw, err))
	}

	if v, ok := nonEmpty(lookup, envHTTPAddr); ok {
		cfg.HTTPAddr = v
	} else if v, ok := nonEmpty(lookup, envPort); ok {
		if _, err := parseInt(v, func(p int) bool { return p > 0 && p <= 65535 }, "must be a tcp port"); err != nil {
			warn(envPort, v, err)
		} else {
			cfg.HTTPAddr = net.JoinHostPort("", v)
		}
	}
	if v, ok := nonEmpty(lookup, envGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := nonEmpty(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := nonEmpty(lookup, envUserServiceURL); ok {
		cfg.UserServiceURL = v
	}
	if v, ok := nonEmpty(lookup, envInventoryServiceURL); ok {
		cfg.InventoryServiceURL = v
	}

	nonNegative := func(d time.Duration) bool { return d >= 0 }
	if v, ok := nonEmpty(lookup, envCheckTimeout); ok {
		if d, err := parseDuration(v, nonNegative, "must be >= 0"); err != nil {
			warn(envCheckTimeout, v, err)
		} else {
			cfg.CheckTimeout = d
		}
	}
	if v, ok := nonEmpty(lookup, envShutdownTimeout); ok {
		if d, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warn(envShutdownTimeout, v, err)
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if v, ok := nonEmpty(lookup, envIDStrategy); ok {
		if s, err := idgen.ParseStrategy(v); err != nil {
			warn(envIDStrategy, v, err)
		} else {
			cfg.IDStrategy = s
		}
	}
	if v, ok := nonEmpty(lookup, envIDPrefix); ok {
		cfg.IDPrefix = v
	}

	if v, ok := nonEmpty(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}

	return cfg, warnings
}

func nonEmpty(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(raw string, valid func(int) bool, msg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s", msg)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, msg string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("%s", msg)
	}
	return v, nil
}

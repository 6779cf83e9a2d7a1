package app

import (
	"github.com/vladislavdragonenkov/order-service/internal/service/orders"
	"github.com/vladislavdragonenkov/order-service/internal/service/validation"
)

// createOrchestrator собирает validation gateway и оркестратор заказов.
// Публикация событий подключается, только если Kafka producer инициализирован.
func createOrchestrator(deps *Dependencies) *orders.Orchestrator {
	gateway := validation.NewGateway(deps.Users, deps.Products,
		validation.WithLogger(deps.Logger.WithField("component", "validation-gateway")),
		validation.WithMetrics(deps.Metrics),
		validation.WithCheckTimeout(deps.CheckTimeout),
	)

	options := []orders.Option{
		orders.WithLogger(deps.Logger.WithField("component", "orders")),
		orders.WithMetrics(deps.Metrics),
	}
	if deps.Publisher != nil {
		options = append(options, orders.WithPublisher(deps.Publisher))
	}

	return orders.NewOrchestrator(deps.Repo, gateway, deps.IDs, options...)
}

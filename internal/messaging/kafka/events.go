package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderCreated EventType = "order.created"
)

// TopicOrderEvents - топик событий заказов.
const TopicOrderEvents = "oms.order.events"

var (
	// ErrUnknownEventType возвращается при декодировании события чужого типа.
	ErrUnknownEventType = errors.New("kafka: unknown event type")
	// ErrMissingOrderID возвращается для события без order_id.
	ErrMissingOrderID = errors.New("kafka: event without order_id")
)

// OrderItemPayload описывает позицию заказа в событии.
type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderCreatedEvent публикуется после сохранения нового заказа.
type OrderCreatedEvent struct {
	EventType EventType          `json:"event_type"`
	OrderID   string             `json:"order_id"`
	UserID    string             `json:"user_id"`
	Status    string             `json:"status"`
	Items     []OrderItemPayload `json:"items"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewOrderCreatedEvent строит событие из сохранённого заказа.
func NewOrderCreatedEvent(order domain.Order) *OrderCreatedEvent {
	items := make([]OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemPayload{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	timestamp := order.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	return &OrderCreatedEvent{
		EventType: EventTypeOrderCreated,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Items:     items,
		Timestamp: timestamp,
	}
}

// DecodeOrderCreatedEvent разбирает сообщение топика заказов.
func DecodeOrderCreatedEvent(data []byte) (OrderCreatedEvent, error) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return OrderCreatedEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if event.EventType != EventTypeOrderCreated {
		return OrderCreatedEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, event.EventType)
	}
	if event.OrderID == "" {
		return OrderCreatedEvent{}, ErrMissingOrderID
	}
	if event.Items == nil {
		event.Items = []OrderItemPayload{}
	}
	return event, nil
}

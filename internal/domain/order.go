package domain

import "time"

// OrderStatus описывает состояние заказа.
type OrderStatus string

const (
	// OrderStatusPending: заказ принят и сохранён; дальнейших переходов сервис не выполняет.
	OrderStatusPending OrderStatus = "pending"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusPending
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ProductID: идентификатор товара в inventory-service.
	ProductID string `json:"productId"`
	// Quantity: количество единиц; диапазон не проверяется.
	Quantity int `json:"quantity"`
}

// Order описывает принятый заказ.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Clone возвращает копию заказа с собственным слайсом позиций.
func (o Order) Clone() Order {
	cp := o
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		copy(cp.Items, o.Items)
	}
	return cp
}

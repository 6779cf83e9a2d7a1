package domain

import "context"

// UserDirectory проверяет существование пользователя в user-service.
type UserDirectory interface {
	// CheckUser возвращает nil, если пользователь существует, иначе ошибку с сообщением для клиента.
	CheckUser(ctx context.Context, userID string) error
}

// ProductCatalog проверяет существование товара в inventory-service.
type ProductCatalog interface {
	// CheckProduct возвращает nil, если товар существует, иначе ошибку с сообщением для клиента.
	CheckProduct(ctx context.Context, productID string) error
}

// IDGenerator выдаёт идентификаторы заказов. Реализации обязаны быть безопасны
// для конкурентного вызова и не повторять значения в пределах процесса.
type IDGenerator interface {
	NewID() string
}

// OrderEventPublisher публикует события о принятых заказах.
type OrderEventPublisher interface {
	PublishOrderCreated(order Order) error
}

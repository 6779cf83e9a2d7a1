package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderAlreadyExists сигнализирует о попытке повторно занять идентификатор заказа.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrUserNotFound: пользователь отсутствует в user-service.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound: товар отсутствует в inventory-service.
	ErrProductNotFound = errors.New("product not found")
)

// EntityKind указывает, какая проверка существования не прошла.
type EntityKind string

const (
	EntityUser    EntityKind = "user"
	EntityProduct EntityKind = "product"
)

// ValidationError описывает отказ проверки существования пользователя или товара.
// Error() возвращает исходное сообщение без изменений: оно уходит клиенту как есть.
type ValidationError struct {
	Kind     EntityKind
	EntityID string
	Message  string
	// Cause хранит исходную ошибку транспорта, если она была.
	Cause error
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap позволяет сопоставлять отказ с ErrUserNotFound/ErrProductNotFound и с исходной ошибкой.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case EntityUser:
		errs = append(errs, ErrUserNotFound)
	case EntityProduct:
		errs = append(errs, ErrProductNotFound)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewUserValidationError создаёт отказ проверки пользователя.
func NewUserValidationError(userID, message string, cause error) *ValidationError {
	return &ValidationError{Kind: EntityUser, EntityID: userID, Message: message, Cause: cause}
}

// NewProductValidationError создаёт отказ проверки товара.
func NewProductValidationError(productID, message string, cause error) *ValidationError {
	return &ValidationError{Kind: EntityProduct, EntityID: productID, Message: message, Cause: cause}
}

// AsValidationError извлекает ValidationError из цепочки ошибок.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// IsValidationFailure проверяет, является ли ошибка отказом валидации.
func IsValidationFailure(err error) bool {
	_, ok := AsValidationError(err)
	return ok
}

// IsNotFound проверяет, что заказ не найден.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

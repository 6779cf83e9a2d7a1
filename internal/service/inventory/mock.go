package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

// MockService является конфигурируемой заглушкой ProductCatalog для тестов и локального запуска.
type MockService struct {
	mu sync.Mutex

	// Missing: товары, для которых CheckProduct вернёт "Product not found".
	Missing map[string]bool
	// CheckErr, если задан, возвращается для любого товара.
	CheckErr error

	CheckCalls int
	Checked    []string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{Missing: make(map[string]bool)}
}

// CheckProduct возвращает заранее настроенный результат и считает вызовы.
func (m *MockService) CheckProduct(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CheckCalls++
	m.Checked = append(m.Checked, productID)
	if m.CheckErr != nil {
		return m.CheckErr
	}
	if m.Missing[productID] {
		return domain.NewProductValidationError(productID, msgProductNotFound, nil)
	}
	return nil
}

// Calls возвращает число вызовов под мьютексом.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckCalls
}

var _ domain.ProductCatalog = (*MockService)(nil)

package users

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

// MockService заменяет UserDirectory в тестах.
type MockService struct {
	mu sync.Mutex

	// Missing: пользователи, которых "нет" в user-service.
	Missing map[string]bool
	// CheckErr, если задан, возвращается на любой вызов.
	CheckErr error

	CheckCalls int
}

// NewMockService возвращает mock, в котором существуют все пользователи.
func NewMockService() *MockService {
	return &MockService{Missing: make(map[string]bool)}
}

func (m *MockService) CheckUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CheckCalls++
	if m.CheckErr != nil {
		return m.CheckErr
	}
	if m.Missing[userID] {
		return domain.NewUserValidationError(userID, msgUserNotFound, nil)
	}
	return nil
}

// Calls возвращает число вызовов CheckUser.
func (m *MockService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CheckCalls
}

var _ domain.UserDirectory = (*MockService)(nil)

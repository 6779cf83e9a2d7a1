package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

// orderRepositoryInMemory реализует OrderRepository в памяти.
// Порядок вставки хранится отдельно, List возвращает заказы в порядке создания.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
	order []string
}

// NewOrderRepository возвращает in-memory репозиторий. Данные живут до остановки процесса.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят. Существующая запись никогда не перезаписывается.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order.Clone()
	r.order = append(r.order, order.ID)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// List возвращает все заказы в порядке вставки.
func (r *orderRepositoryInMemory) List() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.items[id].Clone())
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)

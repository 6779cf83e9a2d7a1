// Package idgen выдаёт идентификаторы заказов.
//
// Обе реализации безопасны для конкурентного использования и не зависят
// от разрешения системных часов.
package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
)

// Strategy задаёт способ генерации идентификаторов.
type Strategy string

const (
	// StrategyUUID выдаёт случайный UUIDv4.
	StrategyUUID Strategy = "uuid"
	// StrategySequence выдаёт монотонный счётчик с префиксом.
	StrategySequence Strategy = "sequence"

	DefaultPrefix = "ord"
)

// ParseStrategy нормализует строку из конфигурации.
func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case StrategyUUID, StrategySequence:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported id strategy %q", raw)
	}
}

// New создаёт генератор для выбранной стратегии.
func New(strategy Strategy, prefix string) (domain.IDGenerator, error) {
	switch strategy {
	case StrategyUUID, "":
		return NewUUID(), nil
	case StrategySequence:
		return NewSequence(prefix), nil
	default:
		return nil, fmt.Errorf("unsupported id strategy %q", strategy)
	}
}

// UUID генерирует случайные идентификаторы.
type UUID struct{}

// NewUUID возвращает генератор UUIDv4.
func NewUUID() *UUID {
	return &UUID{}
}

// NewID возвращает новый UUID в канонической строковой форме.
func (*UUID) NewID() string {
	return uuid.NewString()
}

// Sequence выдаёт идентификаторы вида "<prefix>-<n>", n начинается с 1.
type Sequence struct {
	prefix string
	next   atomic.Uint64
}

// NewSequence создаёт монотонный генератор. Пустой prefix заменяется на DefaultPrefix.
func NewSequence(prefix string) *Sequence {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sequence{prefix: prefix}
}

// NewID атомарно увеличивает счётчик.
func (s *Sequence) NewID() string {
	n := s.next.Add(1)
	return s.prefix + "-" + strconv.FormatUint(n, 10)
}

var (
	_ domain.IDGenerator = (*UUID)(nil)
	_ domain.IDGenerator = (*Sequence)(nil)
)

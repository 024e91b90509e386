package memory

import (
	"sync"

	"github.com/nastyazhadan/limit-order-executor/internal/domain/models"
)

const defaultWarningCapacity = 256

// WarningStore keeps the most recent execution warnings for the UI.
type WarningStore struct {
	mu       sync.RWMutex
	items    []models.Warning
	capacity int
}

func NewWarningStore(capacity int) *WarningStore {
	if capacity <= 0 {
		capacity = defaultWarningCapacity
	}

	return &WarningStore{
		items:    make([]models.Warning, 0, capacity),
		capacity: capacity,
	}
}

func (s *WarningStore) Add(warning models.Warning) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == s.capacity {
		copy(s.items, s.items[1:])
		s.items = s.items[:len(s.items)-1]
	}
	s.items = append(s.items, warning)
}

// List returns warnings newest first.
func (s *WarningStore) List() []models.Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Warning, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}

	return out
}

func (s *WarningStore) ForOrder(orderID string) []models.Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Warning
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].OrderID == orderID {
			out = append(out, s.items[i])
		}
	}

	return out
}

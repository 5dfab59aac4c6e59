package store

import (
	"context"
	"fmt"
	"sync"

	"mhreg/internal/registration/models"
	dErrors "mhreg/pkg/domain-errors"
)

// mhrNumberBase seeds the in-memory sequence. Assigned numbers are six-digit
// strings, matching the production sequence format.
const mhrNumberBase = 100000

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu            sync.RWMutex
	byMHRNumber   map[string]*models.Registration
	byAccount     map[string][]*models.Registration
	lastMHRNumber int
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byMHRNumber:   make(map[string]*models.Registration),
		byAccount:     make(map[string][]*models.Registration),
		lastMHRNumber: mhrNumberBase,
	}
}

func (s *InMemoryStore) Create(_ context.Context, reg *models.Registration) error {
	if reg == nil {
		return fmt.Errorf("registration is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *reg
	// Amendment chains share an MHR number; only the base filing claims the
	// lookup slot.
	if _, exists := s.byMHRNumber[copied.MHRNumber]; !exists {
		s.byMHRNumber[copied.MHRNumber] = &copied
	}
	s.byAccount[copied.AccountID] = append(s.byAccount[copied.AccountID], &copied)
	return nil
}

func (s *InMemoryStore) GetByMHRNumber(_ context.Context, mhrNumber string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byMHRNumber[mhrNumber]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "registration %s not found", mhrNumber)
	}
	copied := *reg
	return &copied, nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID string) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := s.byAccount[accountID]
	out := make([]*models.Registration, 0, len(regs))
	for _, reg := range regs {
		copied := *reg
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) NextMHRNumber(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastMHRNumber++
	return fmt.Sprintf("%06d", s.lastMHRNumber), nil
}

func (s *InMemoryStore) Ping(_ context.Context) error {
	return nil
}

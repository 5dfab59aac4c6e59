// Package events publishes registration lifecycle events for downstream
// consumers (search indexing, reporting).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RegistrationCreated is emitted once per successful registration filing.
type RegistrationCreated struct {
	EventID          uuid.UUID `json:"eventId"`
	MHRNumber        string    `json:"mhrNumber"`
	AccountID        string    `json:"accountId"`
	RegistrationType string    `json:"registrationType"`
	Username         string    `json:"username"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Publisher emits registration events. Implementations must respect ctx
// deadlines; a slow broker surfaces as an error, never a hung request.
type Publisher interface {
	PublishRegistrationCreated(ctx context.Context, event RegistrationCreated) error
	Close()
}

// MemoryPublisher records events in memory. Used in tests and when no broker
// is configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []RegistrationCreated
}

// NewMemoryPublisher constructs an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishRegistrationCreated(_ context.Context, event RegistrationCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a snapshot of everything published so far.
func (p *MemoryPublisher) Events() []RegistrationCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RegistrationCreated, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MemoryPublisher) Close() {}

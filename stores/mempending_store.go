package stores

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2/memstore"

	oa "github.com/panyam/accounts"
)

// MemPendingStore implements oa.PendingStore on top of the scs memstore.
// The memstore handles payload expiry; the mutex makes Consume an atomic
// find-and-delete so two requests racing on one token cannot both win.
type MemPendingStore struct {
	mu    sync.Mutex
	store *memstore.MemStore
}

func NewMemPendingStore() *MemPendingStore {
	return &MemPendingStore{store: memstore.New()}
}

func (s *MemPendingStore) Create(action *oa.PendingAction, ttl time.Duration) (string, error) {
	token, err := oa.GenerateSecureToken()
	if err != nil {
		return "", err
	}

	action.Token = token
	action.CreatedAt = time.Now()
	action.ExpiresAt = action.CreatedAt.Add(ttl)

	encoded, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("error encoding pending action: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Commit(token, encoded, action.ExpiresAt); err != nil {
		return "", err
	}
	return token, nil
}

func (s *MemPendingStore) Peek(token string, flow oa.Flow) (*oa.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(token, flow)
}

func (s *MemPendingStore) Consume(token string, flow oa.Flow) (*oa.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, err := s.find(token, flow)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(token); err != nil {
		return nil, err
	}
	return action, nil
}

func (s *MemPendingStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(token)
}

// find must be called with the mutex held
func (s *MemPendingStore) find(token string, flow oa.Flow) (*oa.PendingAction, error) {
	encoded, found, err := s.store.Find(token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, oa.ErrTokenInvalid
	}

	var action oa.PendingAction
	if err := json.Unmarshal(encoded, &action); err != nil {
		return nil, fmt.Errorf("error decoding pending action: %w", err)
	}
	if action.IsExpired() || action.Flow != flow {
		return nil, oa.ErrTokenInvalid
	}
	return &action, nil
}

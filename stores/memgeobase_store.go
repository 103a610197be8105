package stores

import (
	"fmt"
	"strings"
	"sync"

	"github.com/panyam/accounts/geobase"
)

// MemGeobaseStore implements geobase.Store, deduplicating on the
// (country, province, locality) triple
type MemGeobaseStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*geobase.Location
	byKey  map[string]int64
}

func NewMemGeobaseStore() *MemGeobaseStore {
	return &MemGeobaseStore{
		nextID: 1,
		byID:   map[int64]*geobase.Location{},
		byKey:  map[string]int64{},
	}
}

func locationKey(loc *geobase.Location) string {
	return strings.ToLower(loc.Country) + "|" + strings.ToLower(loc.Province) + "|" + strings.ToLower(loc.Locality)
}

func (s *MemGeobaseStore) Ensure(loc *geobase.Location) (*geobase.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := locationKey(loc)
	if id, ok := s.byKey[key]; ok {
		copied := *s.byID[id]
		return &copied, nil
	}

	copied := *loc
	copied.ID = s.nextID
	s.nextID++
	s.byID[copied.ID] = &copied
	s.byKey[key] = copied.ID

	out := copied
	return &out, nil
}

func (s *MemGeobaseStore) GetById(id int64) (*geobase.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("geobase entry not found: %d", id)
	}
	copied := *loc
	return &copied, nil
}

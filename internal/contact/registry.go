package contact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/demsim/internal/dynamo"
)

// Registry holds one prototype law per material id.
type Registry struct {
	mu         sync.RWMutex
	prototypes map[int]Law
	fallback   Law
}

func NewRegistry() *Registry {
	return &Registry{prototypes: make(map[int]Law)}
}

// Register sets the prototype for a material.
func (r *Registry) Register(materialID int, proto Law) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prototypes[materialID] = proto
}

// SetDefault sets the prototype used for materials without their own entry.
func (r *Registry) SetDefault(proto Law) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = proto
}

// Instantiate clones the prototype for a material.
func (r *Registry) Instantiate(materialID int) (Law, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proto, ok := r.prototypes[materialID]
	if !ok {
		proto = r.fallback
	}
	if proto == nil {
		return nil, fmt.Errorf("material %d: %w", materialID, dynamo.ErrMissingLaw)
	}
	return proto.Clone(), nil
}

// Materials lists the material ids with a registered prototype.
func (r *Registry) Materials() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.prototypes))
	for id := range r.prototypes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

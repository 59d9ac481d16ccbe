package fact

import (
	"sync"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

// Schema holds the cardinality declaration for each attribute the commit
// pipeline has been told about. Attributes default to cardinality-many:
// only declared cardinality-one attributes trigger implicit supersession.
type Schema struct {
	mu          sync.RWMutex
	cardinality map[scalar.Attribute]scalar.Cardinality
}

func NewSchema() *Schema {
	return &Schema{cardinality: make(map[scalar.Attribute]scalar.Cardinality)}
}

// Declare records an attribute's cardinality.
func (s *Schema) Declare(attr scalar.Attribute, c scalar.Cardinality) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cardinality[attr] = c
}

// CardinalityOf reports the declared cardinality, defaulting to Many.
func (s *Schema) CardinalityOf(attr scalar.Attribute) scalar.Cardinality {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cardinality[attr]; ok {
		return c
	}
	return scalar.CardinalityMany
}

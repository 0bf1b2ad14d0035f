package ticketing

import (
	"fmt"
	"sort"

	"github.com/thaiesports/ticketbot/pkg/entities"
)

// CategorySet is the fixed, ordered table of ticket categories. It is built
// once from configuration; lookups after construction never mutate it.
type CategorySet struct {
	ordered []entities.Category
	byKey   map[string]entities.Category
}

// NewCategorySet builds a category set from the configured rows. Ordinals are
// assigned from the given order when unset, and every ordinal must be unique
// since it namespaces the ticket numbers.
func NewCategorySet(categories []entities.Category) (*CategorySet, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no ticket categories configured")
	}

	s := &CategorySet{
		ordered: make([]entities.Category, 0, len(categories)),
		byKey:   make(map[string]entities.Category, len(categories)),
	}

	seenOrdinals := make(map[int]string, len(categories))
	for i, c := range categories {
		if c.Key == "" {
			return nil, fmt.Errorf("category at position %d has no key", i)
		}
		if c.Ordinal == 0 {
			c.Ordinal = i + 1
		}
		if _, ok := s.byKey[c.Key]; ok {
			return nil, fmt.Errorf("duplicate category key %q", c.Key)
		}
		if other, ok := seenOrdinals[c.Ordinal]; ok {
			return nil, fmt.Errorf("categories %q and %q share ordinal %d", other, c.Key, c.Ordinal)
		}
		seenOrdinals[c.Ordinal] = c.Key

		s.ordered = append(s.ordered, c)
		s.byKey[c.Key] = c
	}

	sort.Slice(s.ordered, func(i, j int) bool {
		return s.ordered[i].Ordinal < s.ordered[j].Ordinal
	})

	return s, nil
}

// Get returns the category for the key.
func (s *CategorySet) Get(key string) (entities.Category, error) {
	c, ok := s.byKey[key]
	if !ok {
		return entities.Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, key)
	}
	return c, nil
}

// Contains reports whether the key is configured.
func (s *CategorySet) Contains(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// All returns the categories in ordinal order.
func (s *CategorySet) All() []entities.Category {
	out := make([]entities.Category, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Label returns the display label for the key, falling back to the key itself
// for categories that are no longer configured (e.g. in old mirrored records).
func (s *CategorySet) Label(key string) string {
	if c, ok := s.byKey[key]; ok {
		return c.Label
	}
	return key
}

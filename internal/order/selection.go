// Package order holds the in-progress order: what is selected, in what
// quantity, and where the user is in the three-step wizard. One goroutine
// owns a Session; the tracker and the presentation layer only exchange
// value copies with it.
package order

import (
	"github.com/frietavond/bestel/internal/menu"
)

// Selection maps every catalog category to its chosen items (insertion
// order preserved) and every chosen item to a quantity. Category keys
// exist from the moment the catalog loads, possibly with empty slices.
type Selection struct {
	categories []string // catalog order, fixed at load
	selections map[string][]menu.Item
	quantities map[string]int
}

func NewSelection(categoryKeys []string) *Selection {
	s := &Selection{}
	s.Reset(categoryKeys)
	return s
}

// Reset re-seeds empty selections for the given categories and drops all
// quantities.
func (s *Selection) Reset(categoryKeys []string) {
	s.categories = append([]string(nil), categoryKeys...)
	s.selections = make(map[string][]menu.Item, len(categoryKeys))
	for _, k := range categoryKeys {
		s.selections[k] = nil
	}
	s.quantities = make(map[string]int)
}

// SelectItems replaces the full selection for one category; callers hand
// over the complete desired set, not a delta. Newly selected items default
// to quantity 1, quantities of dropped items are deleted.
func (s *Selection) SelectItems(categoryKey string, items []menu.Item) {
	if _, ok := s.selections[categoryKey]; !ok {
		return // not a loaded category
	}

	keep := make(map[string]bool, len(items))
	for _, it := range items {
		keep[it.ID] = true
		if _, ok := s.quantities[it.ID]; !ok {
			s.quantities[it.ID] = 1
		}
	}
	for _, it := range s.selections[categoryKey] {
		if !keep[it.ID] {
			delete(s.quantities, it.ID)
		}
	}
	s.selections[categoryKey] = append([]menu.Item(nil), items...)
}

// SetQuantity stores a quantity for a selected item. Values below 1 are
// coerced back to 1; a zero or negative quantity never exists. Unknown
// item ids are ignored.
func (s *Selection) SetQuantity(itemID string, n int) {
	if _, ok := s.quantities[itemID]; !ok {
		return
	}
	if n < 1 {
		n = 1
	}
	s.quantities[itemID] = n
}

// Quantity returns the stored quantity, defaulting to 1.
func (s *Selection) Quantity(itemID string) int {
	if q, ok := s.quantities[itemID]; ok {
		return q
	}
	return 1
}

// RemoveItem deletes one item from whichever category holds it (ids are
// unique across the catalog) together with its quantity. Returns true if
// something was removed.
func (s *Selection) RemoveItem(itemID string) bool {
	for key, items := range s.selections {
		for i, it := range items {
			if it.ID == itemID {
				s.selections[key] = append(items[:i:i], items[i+1:]...)
				delete(s.quantities, itemID)
				return true
			}
		}
	}
	return false
}

// AllSelected flattens every category's selection into one sequence:
// category order first, selection order within a category.
func (s *Selection) AllSelected() []menu.Item {
	var all []menu.Item
	for _, key := range s.categories {
		all = append(all, s.selections[key]...)
	}
	return all
}

// Selected returns the selection for one category.
func (s *Selection) Selected(categoryKey string) []menu.Item {
	return s.selections[categoryKey]
}

// IsEmpty reports whether nothing is selected in any category.
func (s *Selection) IsEmpty() bool {
	for _, items := range s.selections {
		if len(items) > 0 {
			return false
		}
	}
	return true
}

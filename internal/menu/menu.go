// Package menu holds the catalog of orderable items as served by the
// remote ordering API: a flat mapping from category key to items, turned
// into ordered categories with human-readable names.
package menu

import (
	"errors"
	"sort"
	"strings"
	"unicode"
)

// ErrEmptyCatalog means the API answered but yielded zero categories.
// The menu is unusable in that case even though the transport succeeded.
var ErrEmptyCatalog = errors.New("no menu categories in API response")

// Item is a single orderable menu entry. Immutable once loaded.
type Item struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Category            string `json:"category,omitempty"`
	CategoryDisplayName string `json:"categoryDisplayName,omitempty"`
}

// RawItem is an item as it appears on the wire, before the category
// fields are attached.
type RawItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category groups the items under one category key.
type Category struct {
	Type        string
	DisplayName string
	Items       []Item
}

// Catalog is the full loaded menu, categories in stable (sorted key) order.
type Catalog struct {
	Categories []Category
}

// CollapsibleCategories is the fixed allow-list of category keys rendered
// inside the collapsed "Meer opties" section. Static configuration, not
// derived from the menu data.
var CollapsibleCategories = []string{
	"schotels_met_salades_en_frites",
	"schotels_met_salades_zonder_frites",
	"warme_dranken",
	"extras",
	"diversen",
	"dranken",
}

// DisplayName derives a human-readable category name from its key:
// a space before every uppercase letter, underscores become spaces, and
// the first character is capitalized. Deterministic and idempotent for
// keys the API actually uses (lowercase snake_case).
func DisplayName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		case r == '_':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Normalize turns the raw category map from the API into a Catalog,
// attaching category and display name to every item. The wire format is a
// JSON object, so category order is undefined; keys are sorted for a
// stable presentation.
func Normalize(raw map[string][]RawItem) (*Catalog, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cat := &Catalog{}
	for _, key := range keys {
		display := DisplayName(key)
		items := make([]Item, 0, len(raw[key]))
		for _, ri := range raw[key] {
			items = append(items, Item{
				ID:                  ri.ID,
				Name:                ri.Name,
				Category:            key,
				CategoryDisplayName: display,
			})
		}
		cat.Categories = append(cat.Categories, Category{
			Type:        key,
			DisplayName: display,
			Items:       items,
		})
	}

	if len(cat.Categories) == 0 {
		return nil, ErrEmptyCatalog
	}
	return cat, nil
}

// Keys returns the category keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		keys[i] = cat.Type
	}
	return keys
}

// Find locates an item by category key and item id. Used when restoring a
// stored order against the currently loaded menu.
func (c *Catalog) Find(categoryKey, itemID string) (Item, bool) {
	for _, cat := range c.Categories {
		if cat.Type != categoryKey {
			continue
		}
		for _, it := range cat.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Partition splits the categories into the directly rendered group and the
// group folded behind the collapsible section, per the allow-list.
func (c *Catalog) Partition(collapsible []string) (regular, folded []Category) {
	set := make(map[string]bool, len(collapsible))
	for _, k := range collapsible {
		set[k] = true
	}
	for _, cat := range c.Categories {
		if set[cat.Type] {
			folded = append(folded, cat)
		} else {
			regular = append(regular, cat)
		}
	}
	return regular, folded
}

package models

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"stockroom/pkg/model"
)

// Item is one stock-keeping unit.
//
// Invariants:
//   - ProductID is non-empty and unique within a repository
//   - Quantity and Note are optional; nil means "not recorded", not zero
//   - MergeWith replaces Quantity and Note with fresh pointers and never
//     writes through the old ones, so copies returned by lookups stay stable
type Item struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  *uint64 `json:"quantity,omitempty"`
	Note      *string `json:"note,omitempty"`
}

func (i *Item) ID() string { return i.ProductID }

// MatchesTextSearch reports whether the case-folded name contains term.
// term must already be normalized.
func (i *Item) MatchesTextSearch(term string) bool {
	return strings.Contains(model.FoldCase(i.Name), term)
}

// NormalizeSearchTerm folds case so searches ignore it.
func (*Item) NormalizeSearchTerm(term string) string {
	return model.FoldCase(term)
}

// MergeWith folds a later record with the same ID into i. Quantities add up,
// saturating at the largest uint64. The incoming note is placed in front of
// the existing one with no separator. Name is kept from the first record.
func (i *Item) MergeWith(other Item) {
	if other.Quantity != nil {
		var q uint64
		if i.Quantity != nil {
			q = *i.Quantity
		}
		q = addSaturating(q, *other.Quantity)
		i.Quantity = &q
	}
	if other.Note != nil {
		n := *other.Note
		if i.Note != nil {
			n += *i.Note
		}
		i.Note = &n
	}
}

// Validate rejects items that cannot be stored.
func (i Item) Validate() error {
	if i.ProductID == "" {
		return errors.New("id is required")
	}
	return nil
}

// Columns is the header of the item table.
func Columns() []string {
	return []string{"ID", "Name", "Quantity", "Note"}
}

// Cells renders i as a table row. Absent values are empty.
func (i Item) Cells() []string {
	var qty, note string
	if i.Quantity != nil {
		qty = strconv.FormatUint(*i.Quantity, 10)
	}
	if i.Note != nil {
		note = *i.Note
	}
	return []string{i.ProductID, i.Name, qty, note}
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

package postgres

import (
	"encoding/json"

	"github.com/kyochen/tablecart/internal/domain"
)

// itemsJSON serializes a cart document for a jsonb column. nil carts
// are stored as the empty list, never as SQL null.
func itemsJSON(items []domain.CartLine) []byte {
	if items == nil {
		items = []domain.CartLine{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return []byte("[]")
	}
	return b
}

// scanItems decodes a jsonb cart document, tolerating null and garbage
// by returning an empty cart.
func scanItems(raw []byte) []domain.CartLine {
	if len(raw) == 0 {
		return []domain.CartLine{}
	}
	var items []domain.CartLine
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []domain.CartLine{}
	}
	return items
}

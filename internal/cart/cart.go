// Package cart holds the checkout cart session and the discount tier
// arithmetic shared by the quote endpoint and server-side order
// validation, so the payable total has exactly one definition.
package cart

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Discount tiers: carts above 1500 get 12% off, above 550 get 10%.
var (
	tierHigh         = decimal.NewFromInt(1500)
	tierLow          = decimal.NewFromInt(550)
	tierHighDiscount = decimal.NewFromFloat(0.12)
	tierLowDiscount  = decimal.NewFromFloat(0.10)
)

// Item is a cart line: a snapshot of the product at add time.
type Item struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int32           `json:"qty"`
}

// Quote is the priced summary of a cart.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Offer    string          `json:"offer,omitempty"`
}

// Session is an explicit cart value object keyed by product name.
// It replaces ad-hoc global cart maps; persistence to client storage
// goes through MarshalJSON/UnmarshalJSON only.
type Session struct {
	items map[string]Item
	order []string
}

// NewSession returns an empty cart session.
func NewSession() *Session {
	return &Session{items: make(map[string]Item)}
}

// AddItem adds qty units of the product to the session. Adding an item
// already present increases its quantity.
func (s *Session) AddItem(name string, price decimal.Decimal, qty int32) {
	if qty <= 0 {
		return
	}
	it, ok := s.items[name]
	if !ok {
		it = Item{Name: name, Price: price}
		s.order = append(s.order, name)
	}
	it.Qty += qty
	s.items[name] = it
}

// ChangeQuantity adjusts an item's quantity by delta. Quantities that
// drop to zero or below remove the item.
func (s *Session) ChangeQuantity(name string, delta int32) {
	it, ok := s.items[name]
	if !ok {
		return
	}
	it.Qty += delta
	if it.Qty <= 0 {
		delete(s.items, name)
		for i, n := range s.order {
			if n == name {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return
	}
	s.items[name] = it
}

// Clear empties the session.
func (s *Session) Clear() {
	s.items = make(map[string]Item)
	s.order = nil
}

// Items returns the cart lines in insertion order.
func (s *Session) Items() []Item {
	out := make([]Item, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.items[name])
	}
	return out
}

// Quote prices the session.
func (s *Session) Quote() Quote {
	return QuoteItems(s.Items())
}

// MarshalJSON serializes the session as its ordered item list.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON restores a session from a serialized item list.
func (s *Session) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	s.items = make(map[string]Item, len(items))
	s.order = nil
	for _, it := range items {
		s.AddItem(it.Name, it.Price, it.Qty)
	}
	return nil
}

// QuoteItems computes subtotal, tier discount, and the rounded payable
// total for a list of items.
func QuoteItems(items []Item) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt32(it.Qty)))
	}

	discount := decimal.Zero
	offer := ""
	switch {
	case subtotal.GreaterThan(tierHigh):
		discount = subtotal.Mul(tierHighDiscount)
		offer = "12% discount applied"
	case subtotal.GreaterThan(tierLow):
		discount = subtotal.Mul(tierLowDiscount)
		offer = fmt.Sprintf("10%% discount applied, spend over ₹%s for 12%%", tierHigh.StringFixed(0))
	}

	// The storefront has always shown whole-rupee totals.
	total := subtotal.Sub(discount).Round(0)

	return Quote{Subtotal: subtotal, Discount: discount, Total: total, Offer: offer}
}

package cart

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Material is one selectable component of a custom piece.
type Material struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// Entry is one purchasable unit in the cart. UnitPrice is in minor currency units.
// StockCeiling is the stock observed when the entry was created; it can go stale.
type Entry struct {
	Key          string
	ProductID    int64
	Custom       bool
	Name         string
	Category     string
	ImageURL     string
	UnitPrice    int64
	Quantity     int
	StockCeiling int
	Size         string
	SizeStockID  int64
	Materials    []Material
}

// LineTotal is UnitPrice × Quantity.
func (e Entry) LineTotal() int64 {
	return e.UnitPrice * int64(e.Quantity)
}

// KeyFor derives the composite key from item identity, size and material configuration,
// so the same base item with a different size or configuration stays a separate entry.
func KeyFor(e Entry) string {
	var b strings.Builder
	if e.Custom {
		b.WriteString("custom:")
		b.WriteString(e.Name)
	} else {
		fmt.Fprintf(&b, "product:%d", e.ProductID)
	}
	if e.Size != "" {
		b.WriteString("|size:")
		b.WriteString(e.Size)
	}
	if len(e.Materials) > 0 {
		h := sha1.New()
		for _, m := range e.Materials {
			h.Write([]byte(m.Name))
			h.Write([]byte{0})
			h.Write([]byte(m.ImageURL))
			h.Write([]byte{0})
		}
		b.WriteString("|cfg:")
		b.WriteString(hex.EncodeToString(h.Sum(nil))[:12])
	}
	return b.String()
}

func (e Entry) clone() Entry {
	if e.Materials != nil {
		e.Materials = append([]Material(nil), e.Materials...)
	}
	return e
}

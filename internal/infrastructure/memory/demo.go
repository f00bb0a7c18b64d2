package memory

import (
	"github.com/Zhima-Mochi/joyeria/internal/domain/catalog"
	"github.com/Zhima-Mochi/joyeria/internal/domain/customer"
	"github.com/Zhima-Mochi/joyeria/internal/domain/inventory"
	"github.com/Zhima-Mochi/joyeria/internal/domain/shipping"
)

// NewDemoStore returns a Store seeded with a small catalog for local runs
// without a database.
func NewDemoStore(adminEmail string) *Store {
	s := NewStore()
	s.PutProduct(catalog.Product{ID: 1, Name: "Collar Luna", Category: "collares", ImageURL: "/img/collar-luna.jpg", Price: 125000}, 8)
	s.PutProduct(catalog.Product{ID: 2, Name: "Aretes Gota", Category: "aretes", ImageURL: "/img/aretes-gota.jpg", Price: 68000}, 12)
	s.PutProduct(catalog.Product{ID: 3, Name: "Anillo Sol", Category: inventory.DefaultRingCategory, ImageURL: "/img/anillo-sol.jpg", Price: 99000}, 0)
	for i, size := range []string{"5", "6", "7", "8"} {
		s.PutSizedStock(inventory.SizedStock{ID: int64(30 + i), ProductID: 3, Size: size, Quantity: 2})
	}
	s.PutShippingOption(shipping.Option{ID: 1, Description: "Envío estándar (5 a 7 días)", Price: 15000, Active: true})
	s.PutShippingOption(shipping.Option{ID: 2, Description: "Envío express (1 a 2 días)", Price: 35000, Active: true})
	s.PutCustomer(customer.Contact{
		ID: 1, Name: "Cliente Demo", Email: "cliente@example.com", Phone: "5555555555",
		Address: customer.Address{Street: "Av. Reforma 222", City: "Ciudad de México", State: "CDMX", PostalCode: "06600"},
	})
	if adminEmail != "" {
		s.PutAdmin(adminEmail)
	}
	return s
}

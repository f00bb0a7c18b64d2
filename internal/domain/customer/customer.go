package customer

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("customer: not found")

type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Contact is the buyer data used for notifications and admin listings.
type Contact struct {
	ID      int64
	Name    string
	Email   string
	Phone   string
	Address Address
}

// Directory is owned by the authentication side; the pipeline only reads it.
type Directory interface {
	Buyer(ctx context.Context, id int64) (Contact, error)
	AdminEmails(ctx context.Context) ([]string, error)
}

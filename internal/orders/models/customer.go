package models

import (
	"strings"
	"time"

	hmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/history/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
)

// CustomerStatus marks soft deletion.
type CustomerStatus string

const (
	CustomerActive  CustomerStatus = "active"
	CustomerDeleted CustomerStatus = "deleted"
)

type Customer struct {
	ID            id.CustomerID  `json:"id"`
	DBXCustomerID string         `json:"dbx_customer_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	StreetAddress string         `json:"street_address"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	Zip           string         `json:"zip"`
	Status        CustomerStatus `json:"status"`
	DeletedAt     *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsDeleted reports whether the customer is soft-deleted.
func (c *Customer) IsDeleted() bool {
	return c.Status == CustomerDeleted
}

// HistoryFields lists the user-editable fields compared for change history.
func (c *Customer) HistoryFields() []hmodels.Field {
	return []hmodels.Field{
		hmodels.Text("name", c.Name),
		hmodels.Text("email", c.Email),
		hmodels.Text("phone", c.Phone),
		hmodels.Text("street_address", c.StreetAddress),
		hmodels.Text("city", c.City),
		hmodels.Text("state", c.State),
		hmodels.Text("zip", c.Zip),
		hmodels.Text("dbx_customer_id", c.DBXCustomerID),
	}
}

// Matches reports whether query matches the customer's name, email, DBX id
// or city, case-insensitively.
func (c *Customer) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, v := range []string{c.Name, c.Email, c.DBXCustomerID, c.City} {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// CustomerFilter narrows ListCustomers. An empty Status lists active customers.
type CustomerFilter struct {
	Status CustomerStatus
	Query  string
	All    bool
}

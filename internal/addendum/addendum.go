// Package addendum retrieves supplementary item pages linked from a contract
// and merges their items into the contract.
package addendum

import (
	"fmt"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
)

// Addendum is one fetched supplementary item page.
type Addendum struct {
	Link   models.AddendumLink `json:"link"`
	Number string              `json:"number"`
	Items  []models.Item       `json:"items"`
}

// HeaderText labels the header row inserted ahead of the addendum's items as
// "Addendum #N (ID)". ID is the link's de-duplication key, so the URL stands
// in when the link carries no id.
func (a Addendum) HeaderText() string {
	return fmt.Sprintf("Addendum #%s (%s)", a.Number, a.Link.Key())
}

// Merge appends each addendum to c's items as a header row followed by its
// items tagged with the addendum number and URL id. Addenda already present
// in c, repeated in addenda, or without items are skipped. It reports how
// many addenda were merged.
func Merge(c *models.Contract, addenda []Addendum) int {
	merged := map[string]bool{}
	for _, it := range c.Items {
		if it.IsAddendumHeader && it.AddendumURLID != "" {
			merged[it.AddendumURLID] = true
		}
	}

	n := 0
	for _, a := range addenda {
		key := a.Link.Key()
		if merged[key] || len(a.Items) == 0 {
			continue
		}
		merged[key] = true
		n++

		header := a.HeaderText()
		c.Items = append(c.Items, models.Item{
			Type:             models.ItemMainCategory,
			ProductService:   header,
			MainCategory:     header,
			AddendumNumber:   a.Number,
			AddendumURLID:    a.Link.URLID,
			IsAddendumHeader: true,
		})
		for _, it := range a.Items {
			it.AddendumNumber = a.Number
			it.AddendumURLID = a.Link.URLID
			if it.MainCategory == "" {
				it.MainCategory = header
			}
			c.Items = append(c.Items, it)
		}
	}
	return n
}

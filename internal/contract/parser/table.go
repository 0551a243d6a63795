package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
)

// row is one table row (or one plain-text line split into columns).
type row struct {
	cells  []string
	header bool
	bold   bool
	class  string
}

func (r row) nonEmpty() []string {
	var out []string
	for _, c := range r.cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (r row) cell(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// tableRows returns the rows that belong directly to table, skipping nested tables.
func tableRows(table *html.Node) []row {
	var rows []row
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Tr:
				rows = append(rows, readRow(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func readRow(tr *html.Node) row {
	r := row{class: strings.ToLower(attr(tr, "class")), bold: true}
	sawText := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		text := textOf(c)
		r.cells = append(r.cells, text)
		if c.DataAtom == atom.Th {
			r.header = true
		}
		if cls := strings.ToLower(attr(c, "class")); cls != "" {
			r.class = strings.TrimSpace(r.class + " " + cls)
		}
		if text != "" {
			sawText = true
			if !isBold(c) {
				r.bold = false
			}
		}
	}
	if !sawText {
		r.bold = false
	}
	return r
}

var columnSplit = regexp.MustCompile(`\t+|\s{2,}`)

// textRows splits plain-text lines into columns on tabs or runs of spaces.
// A single-column line in capitals counts as bold; blank lines become empty rows.
func textRows(text string) []row {
	var rows []row
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			rows = append(rows, row{})
			continue
		}
		parts := columnSplit.Split(strings.TrimSpace(line), -1)
		r := row{}
		for _, p := range parts {
			r.cells = append(r.cells, Clean(p))
		}
		if len(r.nonEmpty()) == 1 {
			t := r.nonEmpty()[0]
			r.bold = strings.ToUpper(t) == t && strings.ToLower(t) != t
		}
		rows = append(rows, r)
	}
	return rows
}

// columns maps item-table roles to column indexes; -1 when absent.
type columns struct {
	product, qty, rate, amount int
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(".", "", ":", "", "#", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	qtyHeaders     = map[string]bool{"qty": true, "quantity": true, "qnty": true}
	rateHeaders    = map[string]bool{"rate": true, "price": true, "unit price": true, "unit cost": true, "each": true}
	amountHeaders  = map[string]bool{"amount": true, "total": true, "line total": true, "ext price": true, "extended": true}
	productHeaders = map[string]bool{
		"product/service": true, "product / service": true, "product": true, "service": true,
		"description": true, "item": true, "product service": true, "products & services": true,
	}
)

// detectColumns recognises an item-table header row. Quantity, rate and
// amount columns are required.
func detectColumns(r row) (columns, bool) {
	cols := columns{product: -1, qty: -1, rate: -1, amount: -1}
	for i, c := range r.cells {
		k := headerKey(c)
		switch {
		case qtyHeaders[k] && cols.qty < 0:
			cols.qty = i
		case rateHeaders[k] && cols.rate < 0:
			cols.rate = i
		case amountHeaders[k] && cols.amount < 0:
			cols.amount = i
		case productHeaders[k] && cols.product < 0:
			cols.product = i
		}
	}
	if cols.qty < 0 || cols.rate < 0 || cols.amount < 0 {
		return cols, false
	}
	if cols.product < 0 {
		for i := range r.cells {
			if i != cols.qty && i != cols.rate && i != cols.amount {
				cols.product = i
				break
			}
		}
	}
	return cols, true
}

// itemBuilder classifies rows into categories and items, carrying the
// current categories onto each item.
type itemBuilder struct {
	cols       columns
	main, sub  string
	items      []models.Item
	grandTotal *decimal.Decimal
}

func isTotalLabel(s string) bool {
	k := headerKey(s)
	return k == "total" || k == "subtotal" || k == "sub total" || strings.HasPrefix(k, "grand total") ||
		strings.HasPrefix(k, "total contract") || k == "tax" || k == "sales tax"
}

func (b *itemBuilder) moneyCells(r row) (qty, rate, amount string) {
	if b.cols.qty >= 0 {
		qty = r.cell(b.cols.qty)
	}
	if b.cols.rate >= 0 {
		rate = r.cell(b.cols.rate)
	}
	if b.cols.amount >= 0 {
		amount = r.cell(b.cols.amount)
	}
	return qty, rate, amount
}

func (b *itemBuilder) add(r row) {
	cells := r.nonEmpty()
	if len(cells) == 0 {
		return
	}
	name := r.cell(b.cols.product)
	if name == "" {
		name = cells[0]
	}
	qtyS, rateS, amountS := b.moneyCells(r)

	if isTotalLabel(name) || isTotalLabel(cells[0]) {
		if strings.HasPrefix(headerKey(cells[0]), "grand total") {
			if d, err := ParseAmount(cells[len(cells)-1]); err == nil {
				b.grandTotal = &d
			}
		}
		return
	}

	switch {
	case r.header || r.bold || strings.Contains(r.class, "maincategory") || strings.Contains(r.class, "main-category"):
		b.main = name
		b.sub = ""
		b.items = append(b.items, models.Item{Type: models.ItemMainCategory, ProductService: name, MainCategory: name})
		return
	case strings.Contains(r.class, "subcategory") || strings.Contains(r.class, "sub-category") ||
		len(cells) == 1 || (qtyS == "" && rateS == "" && amountS == ""):
		b.sub = name
		b.items = append(b.items, models.Item{Type: models.ItemSubCategory, ProductService: name, MainCategory: b.main, SubCategory: name})
		return
	}

	qty, err := ParseAmount(qtyS)
	if err != nil {
		qty = decimal.Zero
	}
	rate, err := ParseAmount(rateS)
	if err != nil {
		rate = decimal.Zero
	}
	amount, err := ParseAmount(amountS)
	if err != nil || (amountS == "" && !qty.IsZero()) {
		amount = qty.Mul(rate)
	}
	b.items = append(b.items, models.Item{
		Type:           models.ItemLine,
		ProductService: name,
		Qty:            qty,
		Rate:           rate,
		Amount:         amount.Round(2),
		MainCategory:   b.main,
		SubCategory:    b.sub,
	})
}

// scrapeRows finds the item header among rows and classifies the rows after it.
// It reports false when no header row is present. With stopOnBlank the table
// ends at the first empty row once items have been read.
func scrapeRows(rows []row, stopOnBlank bool) (*itemBuilder, bool) {
	for i, r := range rows {
		cols, ok := detectColumns(r)
		if !ok {
			continue
		}
		b := &itemBuilder{cols: cols}
		for _, r := range rows[i+1:] {
			if stopOnBlank && len(r.cells) == 0 && len(b.items) > 0 {
				break
			}
			if _, again := detectColumns(r); again {
				continue
			}
			b.add(r)
		}
		return b, true
	}
	return nil, false
}

// ScrapeItems returns the items of the first item table in doc.
func ScrapeItems(doc *html.Node) ([]models.Item, *decimal.Decimal) {
	for _, table := range findAll(doc, atom.Table) {
		if b, ok := scrapeRows(tableRows(table), false); ok {
			return b.items, b.grandTotal
		}
	}
	return nil, nil
}

// ScrapeTextItems is ScrapeItems for plain-text bodies.
func ScrapeTextItems(text string) ([]models.Item, *decimal.Decimal) {
	if b, ok := scrapeRows(textRows(text), true); ok {
		return b.items, b.grandTotal
	}
	return nil, nil
}

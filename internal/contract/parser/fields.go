package parser

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

type field string

const (
	fieldOrderNo          field = "order_no"
	fieldOrderDate        field = "order_date"
	fieldOrderPO          field = "order_po"
	fieldOrderDueDate     field = "order_due_date"
	fieldOrderType        field = "order_type"
	fieldOrderDelivered   field = "order_delivered"
	fieldQuoteExpiration  field = "quote_expiration_date"
	fieldCustomerName     field = "customer_name"
	fieldEmail            field = "email"
	fieldPhone            field = "phone"
	fieldStreet           field = "street_address"
	fieldCity             field = "city"
	fieldState            field = "state"
	fieldZip              field = "zip"
	fieldDBXCustomerID    field = "dbx_customer_id"
	fieldSalesRep         field = "sales_rep"
	fieldGrandTotal       field = "grand_total"
	fieldProgressPayments field = "progress_payments"
	fieldBalanceDue       field = "balance_due"
)

var labels = map[string]field{
	"order no":              fieldOrderNo,
	"order number":          fieldOrderNo,
	"contract no":           fieldOrderNo,
	"contract number":       fieldOrderNo,
	"order date":            fieldOrderDate,
	"contract date":         fieldOrderDate,
	"order po":              fieldOrderPO,
	"po":                    fieldOrderPO,
	"po no":                 fieldOrderPO,
	"purchase order":        fieldOrderPO,
	"purchase order no":     fieldOrderPO,
	"order due date":        fieldOrderDueDate,
	"due date":              fieldOrderDueDate,
	"order type":            fieldOrderType,
	"project type":          fieldOrderType,
	"order delivered":       fieldOrderDelivered,
	"delivered":             fieldOrderDelivered,
	"quote expiration date": fieldQuoteExpiration,
	"quote expiration":      fieldQuoteExpiration,
	"quote expires":         fieldQuoteExpiration,
	"customer name":         fieldCustomerName,
	"customer":              fieldCustomerName,
	"client":                fieldCustomerName,
	"client name":           fieldCustomerName,
	"email":                 fieldEmail,
	"e-mail":                fieldEmail,
	"customer email":        fieldEmail,
	"phone":                 fieldPhone,
	"phone number":          fieldPhone,
	"customer phone":        fieldPhone,
	"telephone":             fieldPhone,
	"street":                fieldStreet,
	"street address":        fieldStreet,
	"address":               fieldStreet,
	"job address":           fieldStreet,
	"job site address":      fieldStreet,
	"city":                  fieldCity,
	"state":                 fieldState,
	"zip":                   fieldZip,
	"zip code":              fieldZip,
	"postal code":           fieldZip,
	"dbx customer id":       fieldDBXCustomerID,
	"customer id":           fieldDBXCustomerID,
	"customer no":           fieldDBXCustomerID,
	"sales rep":             fieldSalesRep,
	"sales representative":  fieldSalesRep,
	"salesperson":           fieldSalesRep,
	"grand total":           fieldGrandTotal,
	"contract total":        fieldGrandTotal,
	"total contract amount": fieldGrandTotal,
	"progress payments":     fieldProgressPayments,
	"payments received":     fieldProgressPayments,
	"balance due":           fieldBalanceDue,
	"balance":               fieldBalanceDue,
}

// labelKey normalises "Order #:" to "order no" and looks it up.
func labelKey(s string) (field, bool) {
	if len(s) > 40 {
		return "", false
	}
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("#", " no ", ":", "", ".", "", "*", "").Replace(k)
	k = strings.Join(strings.Fields(k), " ")
	f, ok := labels[k]
	return f, ok
}

// splitLabel splits "Label: value" text.
func splitLabel(s string) (field, string, bool) {
	label, value, found := strings.Cut(s, ":")
	if !found {
		return "", "", false
	}
	f, ok := labelKey(label)
	if !ok {
		return "", "", false
	}
	return f, strings.TrimSpace(value), true
}

// fieldSet collects the first value seen per field.
type fieldSet map[field]string

func (fs fieldSet) put(f field, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if _, ok := fs[f]; !ok {
		fs[f] = v
	}
}

// collectHTMLFields reads label/value cell pairs from every table row, then
// "Label: value" lines from the rest of the document.
func collectHTMLFields(doc *html.Node) fieldSet {
	fs := fieldSet{}
	for _, tr := range findAll(doc, atom.Tr) {
		r := readRow(tr)
		for i := 0; i < len(r.cells); i++ {
			cell := r.cells[i]
			if f, ok := labelKey(cell); ok {
				j := i + 1
				for j < len(r.cells) && r.cells[j] == "" {
					j++
				}
				if j < len(r.cells) {
					if _, isLabel := labelKey(r.cells[j]); !isLabel {
						fs.put(f, r.cells[j])
						i = j
					}
				}
				continue
			}
			if f, v, ok := splitLabel(cell); ok {
				fs.put(f, v)
			}
		}
	}
	collectLineFields(fs, lines(doc))
	return fs
}

func collectLineFields(fs fieldSet, lines []string) {
	for _, l := range lines {
		if f, v, ok := splitLabel(l); ok {
			fs.put(f, v)
		}
	}
}

// apply copies collected values onto c. Malformed dates and amounts are
// validation errors naming the field.
func (fs fieldSet) apply(c *models.Contract) (statedTotal, statedBalance bool, err error) {
	c.Customer = models.Customer{
		DBXCustomerID: fs[fieldDBXCustomerID],
		Name:          fs[fieldCustomerName],
		Email:         strings.ToLower(fs[fieldEmail]),
		Phone:         fs[fieldPhone],
		StreetAddress: fs[fieldStreet],
		City:          fs[fieldCity],
		State:         fs[fieldState],
		Zip:           fs[fieldZip],
	}
	o := &c.Order
	o.OrderNo = fs[fieldOrderNo]
	o.OrderPO = fs[fieldOrderPO]
	o.OrderType = fs[fieldOrderType]
	o.SalesRep = fs[fieldSalesRep]
	o.OrderDelivered = ParseBool(fs[fieldOrderDelivered])

	if o.OrderDate, err = ParseDate(fs[fieldOrderDate]); err != nil {
		return false, false, invalidField("order date", err)
	}
	if o.OrderDueDate, err = ParseDate(fs[fieldOrderDueDate]); err != nil {
		return false, false, invalidField("order due date", err)
	}
	if o.QuoteExpirationDate, err = ParseDate(fs[fieldQuoteExpiration]); err != nil {
		return false, false, invalidField("quote expiration date", err)
	}
	if o.GrandTotal, err = ParseAmount(fs[fieldGrandTotal]); err != nil {
		return false, false, invalidField("grand total", err)
	}
	if o.ProgressPayments, err = ParseAmount(fs[fieldProgressPayments]); err != nil {
		return false, false, invalidField("progress payments", err)
	}
	if o.BalanceDue, err = ParseAmount(fs[fieldBalanceDue]); err != nil {
		return false, false, invalidField("balance due", err)
	}
	_, statedTotal = fs[fieldGrandTotal]
	_, statedBalance = fs[fieldBalanceDue]
	return statedTotal, statedBalance, nil
}

func invalidField(name string, err error) error {
	return dErrors.New(dErrors.CodeValidation, name+": "+err.Error())
}

package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertSampleContract(t *testing.T, c *models.Contract) {
	t.Helper()
	assert.Equal(t, "10452", c.Order.OrderNo)
	require.NotNil(t, c.Order.OrderDate)
	assert.Equal(t, "2025-03-14", c.Order.OrderDate.Format("2006-01-02"))
	assert.Equal(t, "PO-55", c.Order.OrderPO)
	assert.Equal(t, "New Pool", c.Order.OrderType)
	assert.True(t, c.Order.OrderDelivered)
	assert.Equal(t, "Marco Ruiz", c.Order.SalesRep)
	require.NotNil(t, c.Order.QuoteExpirationDate)
	assert.True(t, c.Order.GrandTotal.Equal(dec("5950.50")))
	assert.True(t, c.Order.ProgressPayments.Equal(dec("2500")))
	assert.True(t, c.Order.BalanceDue.Equal(dec("3450.50")), "balance %s", c.Order.BalanceDue)

	assert.Equal(t, models.Customer{
		DBXCustomerID: "DBX-7781",
		Name:          "Jane & John Doe",
		Email:         "jane.doe@example.com",
		Phone:         "(555) 010-2233",
		StreetAddress: "12 Lagoon Way",
		City:          "Irvine",
		State:         "CA",
		Zip:           "92618",
	}, c.Customer)

	require.Len(t, c.Items, 7)
	types := make([]models.ItemType, len(c.Items))
	for i, it := range c.Items {
		types[i] = it.Type
	}
	assert.Equal(t, []models.ItemType{
		models.ItemMainCategory, models.ItemSubCategory, models.ItemLine, models.ItemLine,
		models.ItemMainCategory, models.ItemLine, models.ItemLine,
	}, types)

	dig := c.Items[2]
	assert.Equal(t, "Dig and haul", dig.ProductService)
	assert.Equal(t, "Excavation", dig.MainCategory)
	assert.Equal(t, "Site Prep", dig.SubCategory)
	assert.True(t, dig.Amount.Equal(dec("4200")))

	drain := c.Items[5]
	assert.Equal(t, "Plumbing", drain.MainCategory)
	assert.Empty(t, drain.SubCategory)
	assert.True(t, drain.Rate.Equal(dec("1150.50")))

	credit := c.Items[6]
	assert.True(t, credit.Amount.Equal(dec("-100")))

	require.Len(t, c.AddendumLinks, 2)
	assert.Equal(t, "35587", c.AddendumLinks[0].URLID)
	assert.Equal(t, "991", c.AddendumLinks[1].URLID)
}

func TestParseEMLQuotedPrintableAlternative(t *testing.T) {
	c, err := New().ParseEML(context.Background(), openFixture(t, "contract_qp.eml"))
	require.NoError(t, err)
	assertSampleContract(t, c)
	assert.Equal(t, "html", c.Source.Format)
	assert.Equal(t, "Signed contract – Order 10452", c.Source.Subject)
	assert.Equal(t, "abc123@prodbx.example", c.Source.MessageID)
	require.NotNil(t, c.Source.Date)
}

func TestParseEMLBase64Nested(t *testing.T) {
	c, err := New().ParseEML(context.Background(), openFixture(t, "contract_base64.eml"))
	require.NoError(t, err)
	assertSampleContract(t, c)
}

func TestParseEMLPlainTextFallback(t *testing.T) {
	c, err := New().ParseEML(context.Background(), openFixture(t, "contract_text.eml"))
	require.NoError(t, err)
	assert.Equal(t, "text", c.Source.Format)
	assert.Equal(t, "20001", c.Order.OrderNo)
	assert.Equal(t, "Sam Lee", c.Customer.Name)
	assert.Equal(t, "Ana Park", c.Order.SalesRep)
	require.Len(t, c.Items, 3)
	assert.Equal(t, models.ItemMainCategory, c.Items[0].Type)
	assert.Equal(t, "DECKING", c.Items[1].MainCategory)
	assert.True(t, c.Items[1].Qty.Equal(dec("400")))
	assert.True(t, c.Order.GrandTotal.Equal(dec("5900")), "grand total defaults to item sum")
	require.Len(t, c.AddendumLinks, 1)
	assert.Equal(t, "777", c.AddendumLinks[0].URLID)
}

func TestParseEMLMissingOrderNumber(t *testing.T) {
	_, err := New().ParseEML(context.Background(), openFixture(t, "missing_order.eml"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "order number")
}

func TestParseEMLRejectsGarbage(t *testing.T) {
	_, err := New().ParseEML(context.Background(), strings.NewReader("not an email"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestParseHTMLComputesAmountFromQtyAndRate(t *testing.T) {
	doc := `<table>
<tr><td>Order No.</td><td>A-1</td></tr>
<tr><td>Customer</td><td>Pat</td></tr>
</table>
<table>
<tr><td>Description</td><td>Quantity</td><td>Unit Price</td><td>Total</td></tr>
<tr class="maincategory"><td>Equipment</td><td></td><td></td><td></td></tr>
<tr><td>Pump</td><td>2</td><td>$310.25</td><td></td></tr>
</table>`
	c, err := New().ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, models.ItemMainCategory, c.Items[0].Type)
	assert.True(t, c.Items[1].Amount.Equal(dec("620.50")))
	assert.True(t, c.Order.GrandTotal.Equal(dec("620.50")))
	assert.Empty(t, c.AddendumLinks)
}

func TestCustomAddendumHosts(t *testing.T) {
	doc := `<table><tr><td>Order #</td><td>9</td><td>Customer Name</td><td>Kim</td></tr></table>
<table><tr><th>Item</th><th>Qty</th><th>Price</th><th>Amount</th></tr><tr><td>Tile</td><td>1</td><td>10</td><td>10</td></tr></table>
<a href="https://docs.vendor.example/sheet/44">extra sheet</a>
<a href="https://l1.prodbx.com/go/view/?id=1">default host</a>`
	c, err := New(WithAddendumHosts([]string{"docs.vendor.example"})).ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, c.AddendumLinks, 1)
	assert.Equal(t, "44", c.AddendumLinks[0].URLID)
}

func TestItemTableNeedsRateColumn(t *testing.T) {
	doc := `<table><tr><td>Order #</td><td>12</td><td>Customer Name</td><td>Lee</td></tr></table>
<table><tr><th>Item</th><th>Qty</th><th>Amount</th></tr><tr><td>Permit fee</td><td>1</td><td>75</td></tr></table>
<table><tr><th>Item</th><th>Qty</th><th>Each</th><th>Amount</th></tr><tr><td>Coping stone</td><td>3</td><td>40</td><td>120</td></tr></table>`
	c, err := New().ParseHTML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, c.Items, 1, "a table without a rate column is not the item table")
	assert.Equal(t, "Coping stone", c.Items[0].ProductService)
	assert.True(t, c.Items[0].Rate.Equal(dec("40")))
	assert.True(t, c.Items[0].Amount.Equal(dec("120")))
}

func TestToUTF8DecodesSingleByteCharsets(t *testing.T) {
	smart := []byte{0x93, 'P', 'o', 'o', 'l', 0x94, ' ', 0x96, ' ', 0xE9}
	tests := map[string]struct {
		raw     []byte
		charset string
		want    string
	}{
		"windows-1252 punctuation": {raw: smart, charset: "windows-1252", want: "“Pool” – é"},
		"cp1252 alias":             {raw: smart, charset: " CP1252 ", want: "“Pool” – é"},
		"latin1 control range":     {raw: []byte{0x96, 0xE9}, charset: "iso-8859-1", want: "\u0096é"},
		"utf-8 passthrough":        {raw: []byte("café"), charset: "utf-8", want: "café"},
		"invalid utf-8 replaced":   {raw: []byte{'a', 0xFF, 'b'}, charset: "", want: "a�b"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, toUTF8(tc.raw, tc.charset))
		})
	}
}

func TestDecodeHeaderWindows1252Word(t *testing.T) {
	assert.Equal(t, "Order 10452 – signed", decodeHeader("=?windows-1252?Q?Order_10452_=96_signed?="))
	assert.Equal(t, "=?koi8-r?Q?abc?=", decodeHeader("=?koi8-r?Q?abc?="), "unhandled charsets leave the header as-is")
}

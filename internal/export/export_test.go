package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

func sampleOrder() *models.OrderDetail {
	date := time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC)
	line := &models.OrderItem{
		Type:               cmodels.ItemLine,
		ProductService:     "White plaster",
		Qty:                decimal.NewFromInt(1),
		Rate:               decimal.NewFromInt(3000),
		Amount:             decimal.NewFromInt(3000),
		ProgressOverallPct: decimal.NewFromInt(50),
	}
	line.Recalculate()
	return &models.OrderDetail{
		Order: &models.Order{OrderNo: "10452", OrderDate: &date, SalesRep: "Rita", GrandTotal: decimal.RequireFromString("3000.00")},
		Customer: &models.Customer{
			Name: "Jane Doe", StreetAddress: "12 Palm Way", City: "Fresno", State: "CA", Zip: "93720",
		},
		Items: []*models.OrderItem{
			{Type: cmodels.ItemMainCategory, ProductService: "PLASTER"},
			{Type: cmodels.ItemSubCategory, ProductService: "Interior"},
			line,
			{Type: cmodels.ItemLine, IsAddendumHeader: true, ProductService: "Addendum #2 (3391)"},
		},
	}
}

func readBack(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func value(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func number(t *testing.T, f *excelize.File, sheet, ref string) float64 {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	n, err := strconv.ParseFloat(v, 64)
	require.NoError(t, err)
	return n
}

func TestWriteOrderWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).WriteOrder(context.Background(), &buf, sampleOrder()))
	f := readBack(t, &buf)

	assert.Equal(t, "Customer", value(t, f, DefaultSheet, "A2"))
	assert.Equal(t, "Jane Doe", value(t, f, DefaultSheet, "B2"))
	assert.Equal(t, "12 Palm Way, Fresno, CA 93720", value(t, f, DefaultSheet, "B3"))
	assert.Equal(t, "10452", value(t, f, DefaultSheet, "B4"))
	assert.Equal(t, "05/14/2025", value(t, f, DefaultSheet, "B5"))
	assert.Equal(t, "Rita", value(t, f, DefaultSheet, "B6"))
	assert.Equal(t, "Product/Service", value(t, f, DefaultSheet, "B15"))

	assert.Equal(t, "Category", value(t, f, DefaultSheet, "A16"))
	assert.Equal(t, "PLASTER", value(t, f, DefaultSheet, "B16"))
	assert.Empty(t, value(t, f, DefaultSheet, "E16"))
	assert.Equal(t, "Subcategory", value(t, f, DefaultSheet, "A17"))
	assert.Equal(t, "White plaster", value(t, f, DefaultSheet, "B18"))
	assert.InDelta(t, 3000, number(t, f, DefaultSheet, "E18"), 0.001)
	assert.InDelta(t, 1500, number(t, f, DefaultSheet, "G18"), 0.001)
	assert.InDelta(t, 3000, number(t, f, DefaultSheet, "B7"), 0.001)
	assert.Equal(t, "Addendum", value(t, f, DefaultSheet, "A19"))

	styleID, err := f.GetCellStyle(DefaultSheet, "B16")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteOrderWorkbookFromTemplate(t *testing.T) {
	tmpl := excelize.NewFile()
	require.NoError(t, tmpl.SetSheetName("Sheet1", "Billing"))
	require.NoError(t, tmpl.SetCellValue("Billing", "A2", "Client"))
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, tmpl.SaveAs(path))
	require.NoError(t, tmpl.Close())

	var buf bytes.Buffer
	require.NoError(t, WriteOrderWorkbook(context.Background(), &buf, sampleOrder(), Options{TemplatePath: path}))
	f := readBack(t, &buf)

	assert.Equal(t, "Client", value(t, f, "Billing", "A2"))
	assert.Equal(t, "Jane Doe", value(t, f, "Billing", "B2"))
	assert.Empty(t, value(t, f, "Billing", "A15"))
	assert.Equal(t, "White plaster", value(t, f, "Billing", "B18"))
}

func TestMissingTemplate(t *testing.T) {
	var buf bytes.Buffer
	err := WriteOrderWorkbook(context.Background(), &buf, sampleOrder(), Options{TemplatePath: filepath.Join(t.TempDir(), "nope.xlsx")})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Zero(t, buf.Len())
}

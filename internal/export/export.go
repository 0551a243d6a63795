// Package export renders an order into an Excel workbook, optionally on top
// of a company template that already carries labels and formatting.
package export

import (
	"bytes"
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	cmodels "github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/orders/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

const (
	DefaultSheet = "Order"
	// FirstItemRow is where line items start; rows above hold the header block.
	FirstItemRow  = 16
	columnHeadRow = FirstItemRow - 1
	dateLayout    = "01/02/2006"
)

var tracer = otel.Tracer("contracts/export")

// headerCells maps header labels to the value cell next to them.
var headerCells = []struct {
	label, labelCell, valueCell string
}{
	{"Customer", "A2", "B2"},
	{"Address", "A3", "B3"},
	{"Order #", "A4", "B4"},
	{"Order Date", "A5", "B5"},
	{"Sales Rep", "A6", "B6"},
	{"Grand Total", "A7", "B7"},
}

var itemColumns = []string{
	"Type", "Product/Service", "Qty", "Rate", "Amount",
	"Progress %", "Completed", "Previously Invoiced", "This Bill",
}

type Options struct {
	TemplatePath string
}

// Workbook writes order workbooks. It implements the orders handler Exporter.
type Workbook struct {
	opts Options
}

func New(opts Options) *Workbook {
	return &Workbook{opts: opts}
}

func (w *Workbook) WriteOrder(ctx context.Context, buf *bytes.Buffer, detail *models.OrderDetail) error {
	return WriteOrderWorkbook(ctx, buf, detail, w.opts)
}

// WriteOrderWorkbook fills the header block and item rows and writes the
// xlsx bytes to buf. With a template, labels are left as the template has them.
func WriteOrderWorkbook(ctx context.Context, buf *bytes.Buffer, detail *models.OrderDetail, opts Options) (err error) {
	_, span := tracer.Start(ctx, "export.WriteOrderWorkbook")
	defer span.End()
	span.SetAttributes(
		attribute.String("order_no", detail.Order.OrderNo),
		attribute.Int("items", len(detail.Items)),
		attribute.Bool("template", opts.TemplatePath != ""),
	)

	f, sheet, err := open(opts.TemplatePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = dErrors.Wrap(cerr, dErrors.CodeInternal, "failed to close workbook")
		}
	}()
	s := &sheetWriter{f: f, sheet: sheet}

	if opts.TemplatePath == "" {
		for _, h := range headerCells {
			s.set(h.labelCell, h.label)
		}
		for i, name := range itemColumns {
			s.set(cell(i, columnHeadRow), name)
		}
	}
	writeHeader(s, detail)
	if err := writeItems(s, detail.Items); err != nil {
		return err
	}
	if s.err != nil {
		return dErrors.Wrap(s.err, dErrors.CodeInternal, "failed to fill workbook")
	}
	if _, err := f.WriteTo(buf); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write workbook")
	}
	return nil
}

func open(templatePath string) (*excelize.File, string, error) {
	if templatePath == "" {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), DefaultSheet); err != nil {
			return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to name sheet")
		}
		return f, DefaultSheet, nil
	}
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "excel template cannot be opened")
	}
	return f, f.GetSheetName(0), nil
}

// sheetWriter remembers the first error so cell writes read as a flat list.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (s *sheetWriter) set(ref string, v any) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellValue(s.sheet, ref, v)
}

func (s *sheetWriter) money(ref string, d decimal.Decimal) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellFloat(s.sheet, ref, d.InexactFloat64(), 2, 64)
}

func (s *sheetWriter) style(row, styleID int) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.sheet, cell(0, row), cell(len(itemColumns)-1, row), styleID)
}

func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col+1, row)
	return ref
}

func writeHeader(s *sheetWriter, detail *models.OrderDetail) {
	if c := detail.Customer; c != nil {
		s.set("B2", c.Name)
		s.set("B3", address(c))
	}
	o := detail.Order
	s.set("B4", o.OrderNo)
	if o.OrderDate != nil {
		s.set("B5", o.OrderDate.Format(dateLayout))
	}
	s.set("B6", o.SalesRep)
	s.money("B7", o.GrandTotal)
}

func address(c *models.Customer) string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(c.City, strings.TrimSpace(c.State+" "+c.Zip)), ", "))
	return strings.Join(nonEmpty(c.StreetAddress, cityLine), ", ")
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func typeLabel(it *models.OrderItem) string {
	switch {
	case it.IsAddendumHeader:
		return "Addendum"
	case it.Type == cmodels.ItemMainCategory:
		return "Category"
	case it.Type == cmodels.ItemSubCategory:
		return "Subcategory"
	default:
		return "Item"
	}
}

func writeItems(s *sheetWriter, items []*models.OrderItem) error {
	bold, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create bold style")
	}
	italic, err := s.f.NewStyle(&excelize.Style{Font: &excelize.Font{Italic: true}})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create italic style")
	}
	for i, it := range items {
		row := FirstItemRow + i
		s.set(cell(0, row), typeLabel(it))
		s.set(cell(1, row), it.ProductService)
		switch {
		case it.IsAddendumHeader || it.Type == cmodels.ItemMainCategory:
			s.style(row, bold)
			continue
		case it.Type == cmodels.ItemSubCategory:
			s.style(row, italic)
			continue
		}
		s.money(cell(2, row), it.Qty)
		s.money(cell(3, row), it.Rate)
		s.money(cell(4, row), it.Amount)
		s.money(cell(5, row), it.ProgressOverallPct)
		s.money(cell(6, row), it.CompletedAmount)
		s.money(cell(7, row), it.PreviouslyInvoicedAmount)
		s.money(cell(8, row), it.ThisBill)
	}
	return nil
}

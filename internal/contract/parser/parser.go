// Package parser turns signed contract emails into models.Contract.
//
// The email's HTML body carries label/value cells (Order #, Customer Name, ...)
// and an item table whose header names quantity, rate and amount columns.
// Bold or <th> rows start a main category, single-cell rows a subcategory;
// every other row is a line item filed under the current categories.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

// MaxMessageBytes bounds the size of an email accepted for parsing.
const MaxMessageBytes = 25 << 20

var tracer = otel.Tracer("contracts/parser")

// Parser parses contract emails. It is safe for concurrent use.
type Parser struct {
	addendumHosts []string
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Parser)

// WithAddendumHosts replaces DefaultAddendumHosts.
func WithAddendumHosts(hosts []string) Option {
	return func(p *Parser) {
		if len(hosts) > 0 {
			p.addendumHosts = hosts
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{addendumHosts: DefaultAddendumHosts}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseEML reads an RFC 5322 message and parses its HTML body, falling back
// to the plain-text body when no HTML part exists.
func (p *Parser) ParseEML(ctx context.Context, r io.Reader) (c *models.Contract, err error) {
	ctx, span := tracer.Start(ctx, "contract.ParseEML")
	start := time.Now()
	defer func() {
		p.observe(start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("contract.order_no", c.Order.OrderNo),
				attribute.Int("contract.items", len(c.Items)),
				attribute.Int("contract.addendum_links", len(c.AddendumLinks)),
			)
		}
		span.End()
	}()

	msg, err := mail.ReadMessage(io.LimitReader(r, MaxMessageBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "not a valid email message")
	}
	b, err := readBodies(msg)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable email body")
	}

	switch {
	case strings.TrimSpace(b.html) != "":
		c, err = p.parseHTML(b.html)
	case strings.TrimSpace(b.text) != "":
		c, err = p.parseText(b.text)
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "email has no text or HTML body")
	}
	if err != nil {
		return nil, err
	}

	c.Source.Subject = decodeHeader(msg.Header.Get("Subject"))
	c.Source.From = decodeHeader(msg.Header.Get("From"))
	c.Source.MessageID = strings.Trim(msg.Header.Get("Message-Id"), "<> ")
	if d, derr := msg.Header.Date(); derr == nil {
		d = d.UTC()
		c.Source.Date = &d
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, "contract parsed",
			"order_no", c.Order.OrderNo,
			"items", len(c.Items),
			"addendum_links", len(c.AddendumLinks),
			"format", c.Source.Format,
		)
	}
	return c, nil
}

// ParseHTML parses a contract from an HTML document.
func (p *Parser) ParseHTML(r io.Reader) (*models.Contract, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxMessageBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document")
	}
	return p.parseHTML(string(raw))
}

func (p *Parser) parseHTML(src string) (*models.Contract, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid HTML body")
	}
	c := &models.Contract{Source: models.Source{Format: "html"}}
	statedTotal, statedBalance, err := collectHTMLFields(doc).apply(c)
	if err != nil {
		return nil, err
	}
	items, tableTotal := ScrapeItems(doc)
	c.Items = items

	lc := newLinkCollector(p.addendumHosts)
	lc.fromHTML(doc)
	c.AddendumLinks = lc.links

	finish(c, statedTotal, statedBalance, tableTotal)
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseText parses a contract from a plain-text body.
func (p *Parser) ParseText(r io.Reader) (*models.Contract, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxMessageBytes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document")
	}
	return p.parseText(string(raw))
}

func (p *Parser) parseText(src string) (*models.Contract, error) {
	c := &models.Contract{Source: models.Source{Format: "text"}}
	fs := fieldSet{}
	collectLineFields(fs, splitLines(src))
	statedTotal, statedBalance, err := fs.apply(c)
	if err != nil {
		return nil, err
	}
	items, tableTotal := ScrapeTextItems(src)
	c.Items = items

	lc := newLinkCollector(p.addendumHosts)
	lc.fromText(src)
	c.AddendumLinks = lc.links

	finish(c, statedTotal, statedBalance, tableTotal)
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// finish fills totals the email did not state: grand total from the item
// table's grand-total row or the item sum, balance from total minus payments.
func finish(c *models.Contract, statedTotal, statedBalance bool, tableTotal *decimal.Decimal) {
	if !statedTotal {
		if tableTotal != nil {
			c.Order.GrandTotal = *tableTotal
		} else {
			c.Order.GrandTotal = c.ItemTotal()
		}
	}
	if !statedBalance {
		c.Order.BalanceDue = c.Order.GrandTotal.Sub(c.Order.ProgressPayments)
	}
}

// Validate checks that c has an order number, a customer name and at least
// one line item.
func Validate(c *models.Contract) error {
	var missing []string
	if strings.TrimSpace(c.Order.OrderNo) == "" {
		missing = append(missing, "order number")
	}
	if strings.TrimSpace(c.Customer.Name) == "" {
		missing = append(missing, "customer name")
	}
	if c.LineItemCount() == 0 {
		missing = append(missing, "line items")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("contract is missing %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (p *Parser) observe(start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	switch {
	case err == nil:
		p.metrics.ObserveParse(start, metrics.ResultOK)
	case dErrors.HasCode(err, dErrors.CodeValidation):
		p.metrics.ObserveParse(start, metrics.ResultInvalid)
	default:
		p.metrics.ObserveParse(start, metrics.ResultError)
	}
}

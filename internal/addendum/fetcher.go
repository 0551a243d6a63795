package addendum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/addendum/metrics"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/models"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/contract/parser"
	dErrors "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain-errors"
)

var tracer = otel.Tracer("contracts/addendum")

// PageFetcher downloads the raw HTML of an addendum page.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPPageFetcher downloads pages over HTTP with a timeout and size limit.
// Only hosts on the allow-list are contacted, redirects included; an empty
// list fetches nothing.
type HTTPPageFetcher struct {
	client   *http.Client
	hosts    map[string]bool
	maxBytes int64
	metrics  *metrics.Metrics
}

func NewHTTPPageFetcher(hosts []string, timeout time.Duration, maxBytes int64, m *metrics.Metrics) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	f := &HTTPPageFetcher{
		hosts:    make(map[string]bool, len(hosts)),
		maxBytes: maxBytes,
		metrics:  m,
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			f.hosts[h] = true
		}
	}
	f.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return f.checkURL(req.URL)
		},
	}
	return f
}

func (f *HTTPPageFetcher) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return dErrors.New(dErrors.CodeBadRequest, "addendum link is not an http(s) URL")
	}
	if !f.hosts[strings.ToLower(u.Hostname())] {
		return dErrors.New(dErrors.CodeBadRequest, "addendum host "+u.Hostname()+" is not an allowed provider")
	}
	return nil
}

func (f *HTTPPageFetcher) FetchPage(ctx context.Context, pageURL string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if f.metrics != nil {
			f.metrics.ObserveFetch(start, err)
		}
	}()

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "addendum link is not an http(s) URL")
	}
	if err := f.checkURL(u); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid addendum request")
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", "signed-contracts/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "addendum redirect left the allowed providers")
		}
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "addendum fetch timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "addendum fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("addendum page returned HTTP %d", resp.StatusCode))
	}
	body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read addendum page")
	}
	if int64(len(body)) > f.maxBytes {
		return nil, dErrors.New(dErrors.CodeUnavailable, "addendum page exceeds size limit")
	}
	return body, nil
}

var numberPattern = regexp.MustCompile(`(?i)addendum\s*(?:#|no\.?|number)?\s*:?\s*(\d+)`)

// Fetcher turns addendum links into parsed addenda.
type Fetcher struct {
	pages       PageFetcher
	logger      *slog.Logger
	concurrency int
}

type Option func(*Fetcher)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithConcurrency bounds parallel downloads in FetchAll.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func NewFetcher(pages PageFetcher, opts ...Option) *Fetcher {
	f := &Fetcher{pages: pages, concurrency: 4}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and parses one addendum page. The addendum number comes
// from "Addendum #N" on the page, else the URL id.
func (f *Fetcher) Fetch(ctx context.Context, link models.AddendumLink) (*Addendum, error) {
	ctx, span := tracer.Start(ctx, "addendum.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("addendum.url_id", link.URLID))

	page, err := f.pages.FetchPage(ctx, link.URL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "addendum page is not HTML")
	}
	items, _ := parser.ScrapeItems(doc)

	a := &Addendum{Link: link, Items: items, Number: link.URLID}
	if m := numberPattern.FindStringSubmatch(pageText(doc)); m != nil {
		a.Number = m[1]
	}
	if a.Number == "" {
		a.Number = "?"
	}
	span.SetAttributes(attribute.Int("addendum.items", len(items)))
	return a, nil
}

func pageText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

// FetchAll fetches links in parallel, skipping repeated links, and returns
// the addenda in link order. The first failure cancels the remaining fetches.
func (f *Fetcher) FetchAll(ctx context.Context, links []models.AddendumLink) ([]Addendum, error) {
	unique := make([]models.AddendumLink, 0, len(links))
	seen := map[string]bool{}
	for _, l := range links {
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		unique = append(unique, l)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	results := make([]Addendum, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, link := range unique {
		g.Go(func() error {
			a, err := f.Fetch(gctx, link)
			if err != nil {
				if f.logger != nil {
					f.logger.WarnContext(gctx, "addendum fetch failed", "url", link.URL, "error", err)
				}
				return err
			}
			results[i] = *a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchAndMerge fetches every link of c and merges the addenda into its items.
func (f *Fetcher) FetchAndMerge(ctx context.Context, c *models.Contract) (int, error) {
	addenda, err := f.FetchAll(ctx, c.AddendumLinks)
	if err != nil {
		return 0, err
	}
	return Merge(c, addenda), nil
}

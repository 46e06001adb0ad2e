package screener

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"OptionsSentinel/internal/model"
)

// DefaultURL is the stock screener page.
const DefaultURL = "https://stockanalysis.com/stocks/screener/"

// rowPattern splits one table line into
// Symbol, Company Name, Market Cap, Premkt. Chg., Premkt. Price, Close.
var rowPattern = regexp.MustCompile(`^(\w+)\s+([\w\s,.&-]+?)\s+(\d+\.\d+B)\s+(-?\d+\.\d+%)?\s+([\d,.]+)\s+(-|[\d,.]+)`)

// Filters are opaque screener settings forwarded as query parameters.
type Filters struct {
	MinMarketCap    string
	PremarketFilter string
}

// Scraper loads the pre-market screener table.
type Scraper struct {
	URL     string
	Filters Filters
	Client  *http.Client
	log     *zap.SugaredLogger
}

// NewScraper creates a scraper with optional proxy support.
func NewScraper(pageURL string, filters Filters, proxyURL string, log *zap.SugaredLogger) *Scraper {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if pageURL == "" {
		pageURL = DefaultURL
	}
	return &Scraper{
		URL:     pageURL,
		Filters: filters,
		Client:  &http.Client{Timeout: 30 * time.Second, Transport: transport},
		log:     log,
	}
}

func (s *Scraper) requestURL() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse screener url: %w", err)
	}
	q := u.Query()
	if s.Filters.MinMarketCap != "" {
		q.Set("marketCap", "over"+s.Filters.MinMarketCap)
	}
	if s.Filters.PremarketFilter != "" {
		q.Set("premarketChangePercent", "over"+s.Filters.PremarketFilter)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Scrape fetches the screener page and returns every row that parses.
func (s *Scraper) Scrape(ctx context.Context) ([]model.ScreenerRow, error) {
	endpoint, err := s.requestURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screener fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("screener parse html: %w", err)
	}
	rows := ParseDocument(doc)
	s.log.Infow("screener scraped", "rows", len(rows))
	return rows, nil
}

// ParseDocument reads each tbody row as one whitespace-joined line and
// parses it.
func ParseDocument(doc *goquery.Document) []model.ScreenerRow {
	var lines []string
	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		lines = append(lines, strings.Join(cells, " "))
	})
	return ParseLines(strings.Join(lines, "\n"))
}

// ParseLines parses the text of a table body, one row per line. Lines that
// do not match are dropped.
func ParseLines(text string) []model.ScreenerRow {
	var rows []model.ScreenerRow
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if row, ok := ParseLine(line); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// ParseLine parses a single table line.
func ParseLine(line string) (model.ScreenerRow, bool) {
	m := rowPattern.FindStringSubmatch(line)
	if m == nil {
		return model.ScreenerRow{}, false
	}
	return model.ScreenerRow{
		Symbol:          m[1],
		CompanyName:     m[2],
		MarketCap:       m[3],
		PremarketChange: m[4],
		PremarketPrice:  m[5],
		Close:           m[6],
	}, true
}

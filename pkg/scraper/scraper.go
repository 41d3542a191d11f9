package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/agenthub/agenthub/internal/models"
	"github.com/agenthub/agenthub/internal/types"
	"github.com/agenthub/agenthub/pkg/textproc"
)

// Scraper crawls pages under a single host and extracts their main text
// content. Crawling is breadth-limited by depth and rate-limited.
type Scraper struct {
	config   types.ScraperConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
}

func NewWithConfig(config types.ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", config.BaseURL)
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

// Scrape fetches startURL and same-host pages linked from it, up to the
// configured depth. The root page must fetch cleanly; failures on linked
// pages are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Document, error) {
	var documents []models.Document
	if err := s.crawl(ctx, startURL, 0, &documents); err != nil {
		return nil, err
	}
	return documents, nil
}

func (s *Scraper) crawl(ctx context.Context, pageURL string, depth int, documents *[]models.Document) error {
	if depth > s.config.MaxDepth || s.visited[pageURL] {
		return nil
	}
	if !s.sameHost(pageURL) {
		return nil
	}

	s.visited[pageURL] = true
	if s.config.OnProgress != nil {
		s.config.OnProgress(pageURL)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return err
	}

	content := extractContent(doc)
	if content != "" {
		*documents = append(*documents, models.Document{
			URL:     pageURL,
			Title:   textproc.CollapseWhitespace(doc.Find("title").Text()),
			Content: content,
		})
	}

	for _, link := range s.links(doc, pageURL) {
		if err := s.crawl(ctx, link, depth+1, documents); err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Printf("scrape: skipping %s: %v", link, err)
		}
	}

	return nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, pageURL)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

func (s *Scraper) sameHost(pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host == s.baseHost
}

// links resolves every anchor href on the page against base, dropping
// fragments so the same page is not visited once per anchor.
func (s *Scraper) links(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := baseURL.Parse(href)
		if err != nil {
			return
		}
		resolved.Fragment = ""
		out = append(out, resolved.String())
	})
	return out
}

// extractContent prefers a page's main content region and falls back to
// the whole body.
func extractContent(doc *goquery.Document) string {
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	return textproc.CollapseWhitespace(content)
}

package extractors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/target/mediafetch/internal/domain/model"
)

const (
	defaultMaxPageBytes  = 5 << 20
	defaultScrapeTimeout = 20 * time.Second
)

// ScraperOptions configures page scraping.
type ScraperOptions struct {
	Client    *http.Client // Optional: defaults to NewHTTPClient(20s)
	UserAgent string       // Optional
	MaxBytes  int64        // Optional: defaults to 5 MiB
	Logger    *slog.Logger // Optional
}

// Scraper fetches public platform pages and reads media hints out of them.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// NewScraper creates a page scraper.
func NewScraper(opts ScraperOptions) *Scraper {
	client := opts.Client
	if client == nil {
		client = NewHTTPClient(defaultScrapeTimeout)
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxPageBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
		logger:    logger.With("component", "scraper"),
	}
}

// page is a fetched document plus its text with JSON escapes undone for regex matching.
type page struct {
	URL  *url.URL
	Doc  *goquery.Document
	Text string
}

// Fetch downloads and parses a page, transcoding it to UTF-8 from its declared charset.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*page, error) {
	req, err := newGetRequest(ctx, rawURL, s.userAgent, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for page", resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, s.maxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode page charset: %w", err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	text := strings.ReplaceAll(string(raw), `\/`, "/")
	text = strings.ReplaceAll(text, `\u0026`, "&")
	return &page{URL: resp.Request.URL, Doc: doc, Text: html.UnescapeString(text)}, nil
}

// meta returns the first non-empty content of a meta tag with one of the given property or name keys.
func (p *page) meta(keys ...string) string {
	for _, key := range keys {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)
		var found string
		p.Doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// jsonLD decodes every application/ld+json block; @graph arrays are flattened.
func (p *page) jsonLD() []any {
	var blocks []any
	p.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		switch t := v.(type) {
		case []any:
			blocks = append(blocks, t...)
		case map[string]any:
			if graph, ok := t["@graph"].([]any); ok {
				blocks = append(blocks, graph...)
			} else {
				blocks = append(blocks, t)
			}
		}
	})
	return blocks
}

// resolve makes ref absolute against the page URL.
func (p *page) resolve(ref string) string {
	if ref == "" || p.URL == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.URL.ResolveReference(u).String()
}

// find returns the first match of pattern in the page text.
func (p *page) find(pattern *regexp.Regexp) string {
	if pattern == nil {
		return ""
	}
	return pattern.FindString(p.Text)
}

// videoURL is the best direct video location advertised by the page.
func (p *page) videoURL() string {
	return p.resolve(p.meta("og:video:secure_url", "og:video:url", "og:video", "twitter:player:stream"))
}

// imageURL is the preview image advertised by the page.
func (p *page) imageURL() string {
	return p.resolve(p.meta("og:image:secure_url", "og:image", "twitter:image", "twitter:image:src"))
}

// info builds ContentInfo from Open Graph tags and JSON-LD.
func (p *page) info() *model.ContentInfo {
	info := &model.ContentInfo{
		Title:       p.meta("og:title", "twitter:title"),
		Description: p.meta("og:description", "twitter:description", "description"),
		Thumbnail:   p.imageURL(),
		MediaURL:    p.videoURL(),
	}
	if info.Title == "" {
		info.Title = strings.TrimSpace(p.Doc.Find("title").First().Text())
	}
	info.IsVideo = info.MediaURL != "" || strings.Contains(p.meta("og:type"), "video")
	ldInfo(info, p.jsonLD())
	return info
}

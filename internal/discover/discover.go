// Package discover crawls a site and proposes a URL list for parker.
package discover

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/yingtu35/parker/pkg/domain"
)

const (
	DefaultMaxDepth       = 2  // maximum depth of the links to follow
	DefaultMaxConcurrency = 8  // maximum number of concurrent requests
	DefaultTimeout        = 10 * time.Second
)

type Options struct {
	MaxDepth       int
	MaxConcurrency int
	Timeout        time.Duration
}

// Page is an HTML page reachable from the start URL on the same domain.
type Page struct {
	URL   string
	Title string
}

type Crawler struct {
	opts   Options
	client *http.Client
	start  string
	domain string
	logger *zap.Logger

	semaphore chan struct{} // limits the number of concurrent requests

	mu      sync.Mutex // protects visited and pages
	visited map[string]bool
	pages   map[string]Page

	flightGroup singleflight.Group // avoids duplicate requests for the same URL
}

func NewCrawler(start string, opts Options, logger *zap.Logger) (*Crawler, error) {
	parsed, err := url.Parse(start)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", start)
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d, _ := domain.GetDomain(start)

	return &Crawler{
		opts:      opts,
		client:    &http.Client{Timeout: opts.Timeout},
		start:     normalize(parsed),
		domain:    d,
		logger:    logger.Named("discover"),
		semaphore: make(chan struct{}, opts.MaxConcurrency),
		visited:   make(map[string]bool),
		pages:     make(map[string]Page),
	}, nil
}

// Crawl follows same domain links breadth of MaxDepth from the start URL and
// returns the HTML pages it found, sorted by URL. An unreachable start page
// is an error; failures further down are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context) ([]Page, error) {
	defer c.client.CloseIdleConnections()

	links, err := c.visit(ctx, c.start)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	c.follow(ctx, &wg, links, 1)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	pages := make([]Page, 0, len(c.pages))
	for _, p := range c.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	return pages, nil
}

func (c *Crawler) follow(ctx context.Context, wg *sync.WaitGroup, links []string, depth int) {
	if depth > c.opts.MaxDepth {
		return
	}
	for _, link := range links {
		wg.Add(1)
		go func(link string) {
			defer wg.Done()

			val, err, _ := c.flightGroup.Do(link, func() (interface{}, error) {
				return c.visit(ctx, link)
			})
			if err != nil {
				c.logger.Debug("Skipping link", zap.String("url", link), zap.Error(err))
				return
			}
			next, ok := val.([]string)
			if !ok {
				return
			}
			c.follow(ctx, wg, next, depth+1)
		}(link)
	}
}

// visit fetches url once and returns the links it contains. Pages already
// visited return no links.
func (c *Crawler) visit(ctx context.Context, link string) ([]string, error) {
	c.mu.Lock()
	if c.visited[link] {
		c.mu.Unlock()
		return nil, nil
	}
	c.visited[link] = true
	c.mu.Unlock()

	if !domain.IsSameDomain(c.domain, link) {
		return nil, nil
	}

	// Acquire the semaphore
	select {
	case c.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() {
		<-c.semaphore
	}()

	c.logger.Debug("Fetching page", zap.String("url", link))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned %s", link, res.Status)
	}
	if mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type")); mediaType != "text/html" {
		return nil, nil
	}

	base := res.Request.URL
	title, links, err := parsePage(res.Body, base)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pages[link] = Page{URL: link, Title: title}
	c.mu.Unlock()
	return links, nil
}

// parsePage returns the document title and the absolute http(s) links of
// every anchor, resolved against base and stripped of fragments.
func parsePage(body io.Reader, base *url.URL) (string, []string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", nil, err
	}

	var title string
	var links []string
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.Data {
		case "title":
			if title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "a":
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				if link, ok := resolve(base, a.Val); ok {
					links = append(links, link)
				}
			}
		}
	}
	return title, links, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return normalize(abs), true
}

func normalize(u *url.URL) string {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	if clean.Path == "" {
		clean.Path = "/"
	}
	return clean.String()
}

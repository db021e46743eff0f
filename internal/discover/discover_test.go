package discover

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/parker/internal/config"
)

// newSite serves a small site:
//
//	/ -> /docs, /about#team, /missing, /logo.png, https://other.example.org/
//	/docs -> /docs/deep, /
//	/docs/deep -> /docs/deeper
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	page := func(title string, links ...string) string {
		var b strings.Builder
		fmt.Fprintf(&b, "<html><head><title> %s </title></head><body>", title)
		for _, l := range links {
			fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
		}
		b.WriteString("</body></html>")
		return b.String()
	}
	pages := map[string]string{
		"/":            page("Home", "/docs", "about#team", "/missing", "/logo.png", "https://other.example.org/", "mailto:docs@example.com", "#top"),
		"/docs":        page("Docs", "/docs/deep", "/"),
		"/about":       page("About"),
		"/docs/deep":   page("Deep", "/docs/deeper"),
		"/docs/deeper": page("Deeper"),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/logo.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func crawl(t *testing.T, start string, opts Options) []Page {
	t.Helper()
	c, err := NewCrawler(start, opts, nil)
	require.NoError(t, err)
	pages, err := c.Crawl(context.Background())
	require.NoError(t, err)
	return pages
}

func TestCrawl(t *testing.T) {
	srv := newSite(t)

	pages := crawl(t, srv.URL, Options{MaxDepth: 2, MaxConcurrency: 2})
	assert.Equal(t, []Page{
		{URL: srv.URL + "/", Title: "Home"},
		{URL: srv.URL + "/about", Title: "About"},
		{URL: srv.URL + "/docs", Title: "Docs"},
		{URL: srv.URL + "/docs/deep", Title: "Deep"},
	}, pages)
}

func TestCrawl_DepthZeroOnlyStartPage(t *testing.T) {
	srv := newSite(t)

	pages := crawl(t, srv.URL+"/docs", Options{MaxDepth: 0})
	assert.Equal(t, []Page{{URL: srv.URL + "/docs", Title: "Docs"}}, pages)
}

func TestCrawl_StartPageErrors(t *testing.T) {
	srv := newSite(t)

	c, err := NewCrawler(srv.URL+"/missing", Options{}, nil)
	require.NoError(t, err)
	_, err = c.Crawl(context.Background())
	assert.ErrorContains(t, err, "404")
}

func TestCrawl_Cancelled(t *testing.T) {
	srv := newSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := NewCrawler(srv.URL, Options{}, nil)
	require.NoError(t, err)
	_, err = c.Crawl(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCrawler_RejectsBadStart(t *testing.T) {
	for _, start := range []string{"", "example.com", "ftp://example.com/", "https://"} {
		_, err := NewCrawler(start, Options{}, nil)
		assert.Error(t, err, start)
	}
}

func TestWriteConfig_LoadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConfig(&buf, []Page{
		{URL: "https://example.com/", Title: "Home: welcome"},
		{URL: "https://example.com/untitled"},
	}))
	assert.True(t, strings.HasPrefix(buf.String(), "urls:\n"), buf.String())

	path := filepath.Join(t.TempDir(), "urls.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	doc, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, doc.URLs, 2)
	assert.Equal(t, "https://example.com/", doc.URLs[0].URL)
	assert.Equal(t, "Home: welcome", doc.URLs[0].Description)
	assert.Equal(t, "GET", doc.URLs[1].Method)
	assert.Empty(t, doc.URLs[1].Description)
}

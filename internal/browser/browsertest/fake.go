// Package browsertest provides an in-memory browser.Browser that records every
// call, for tests that must not start Chromium.
package browsertest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yingtu35/parker/internal/browser"
)

// Browser records calls from all of its contexts and pages in one ordered log.
type Browser struct {
	mu sync.Mutex

	// Errors maps a call key such as "goto https://x" or "click #submit" to the
	// error that call returns.
	Errors map[string]error
	// Titles and Descriptions map a URL to what Title and Evaluate return once
	// the page has navigated there.
	Titles       map[string]string
	Descriptions map[string]string
	// NewContextErr fails every NewContext call.
	NewContextErr error

	calls    []string
	contexts []*Context
	closed   bool
}

// New returns an empty fake browser.
func New() *Browser {
	return &Browser{
		Errors:       map[string]error{},
		Titles:       map[string]string{},
		Descriptions: map[string]string{},
	}
}

func (b *Browser) record(call string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	return b.Errors[call]
}

// Calls returns a copy of the call log.
func (b *Browser) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallsWithPrefix returns the logged calls starting with prefix.
func (b *Browser) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range b.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// Contexts returns every context created so far, in creation order.
func (b *Browser) Contexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	if err := b.record(fmt.Sprintf("context %dx%d", opts.Width, opts.Height)); err != nil {
		return nil, err
	}
	if b.NewContextErr != nil {
		return nil, b.NewContextErr
	}
	ctx := &Context{browser: b, Options: opts}
	b.mu.Lock()
	b.contexts = append(b.contexts, ctx)
	b.mu.Unlock()
	return ctx, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Context is a fake browsing context with a plain cookie jar.
type Context struct {
	browser *Browser
	Options browser.ContextOptions

	mu      sync.Mutex
	cookies []browser.Cookie
	closed  bool
}

// SetCookies replaces the jar, e.g. to emulate a login response.
func (c *Context) SetCookies(cookies []browser.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = append([]browser.Cookie(nil), cookies...)
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Context) NewPage() (browser.Page, error) {
	return &Page{browser: c.browser, context: c}, nil
}

func (c *Context) Cookies() ([]browser.Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]browser.Cookie(nil), c.cookies...), nil
}

func (c *Context) AddCookies(cookies []browser.Cookie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = append(c.cookies, cookies...)
	return nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Page is a fake page. Screenshot writes a small deterministic payload.
type Page struct {
	browser *Browser
	context *Context

	url string
}

func (p *Page) Goto(url string) error {
	if err := p.browser.record("goto " + url); err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *Page) Intercept(url string, override browser.RequestOverride) (func() error, error) {
	if err := p.browser.record("intercept " + url); err != nil {
		return nil, err
	}
	released := false
	return func() error {
		if released {
			return errors.New("intercept released twice")
		}
		released = true
		return p.browser.record("unroute " + url)
	}, nil
}

func (p *Page) WaitForSelector(selector string, timeout time.Duration) error {
	return p.browser.record(fmt.Sprintf("wait_for %s %s", selector, timeout))
}

func (p *Page) Wait(d time.Duration) {
	_ = p.browser.record(fmt.Sprintf("wait %s", d))
}

func (p *Page) Title() (string, error) {
	if err := p.browser.record("title"); err != nil {
		return "", err
	}
	return p.browser.Titles[p.url], nil
}

func (p *Page) Evaluate(expression string) (any, error) {
	if err := p.browser.record("evaluate"); err != nil {
		return nil, err
	}
	return p.browser.Descriptions[p.url], nil
}

func (p *Page) Screenshot(path string, fullPage bool) error {
	if err := p.browser.record("screenshot " + path); err != nil {
		return err
	}
	payload := fmt.Sprintf("PNG|%s|%dx%d|full=%t", p.url, p.context.Options.Width, p.context.Options.Height, fullPage)
	return os.WriteFile(path, []byte(payload), 0o644)
}

func (p *Page) Fill(selector, value string) error {
	return p.browser.record("fill " + selector)
}

func (p *Page) Click(selector string) error {
	return p.browser.record("click " + selector)
}

func (p *Page) Type(selector, text string) error {
	return p.browser.record("type " + selector)
}

func (p *Page) Press(key string) error {
	return p.browser.record("press " + key)
}

var _ browser.Browser = (*Browser)(nil)

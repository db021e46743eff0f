// Package browser describes the small slice of a browser engine parker needs
// and provides a Playwright backed implementation of it.
package browser

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is matched by errors from waits and navigations that ran out of time.
	ErrTimeout = errors.New("browser: timeout")
	// ErrNetwork is matched by navigation failures reported by the network stack (net::ERR_*).
	ErrNetwork = errors.New("browser: network error")
)

// Browser is a running browser instance.
type Browser interface {
	NewContext(opts ContextOptions) (Context, error)
	Close() error
}

// Context is an isolated browsing context with its own cookie jar.
type Context interface {
	NewPage() (Page, error)
	Cookies() ([]Cookie, error)
	AddCookies(cookies []Cookie) error
	Close() error
}

// Page is a single tab. Navigation methods return once the network is idle.
type Page interface {
	Goto(url string) error
	// Intercept rewrites the next request made to url. The returned release
	// func removes the rule and must be called once navigation is over.
	Intercept(url string, override RequestOverride) (release func() error, err error)
	WaitForSelector(selector string, timeout time.Duration) error
	Wait(d time.Duration)
	Title() (string, error)
	Evaluate(expression string) (any, error)
	Screenshot(path string, fullPage bool) error
	Fill(selector, value string) error
	Click(selector string) error
	Type(selector, text string) error
	Press(key string) error
}

// ContextOptions configures viewport emulation for a new context.
type ContextOptions struct {
	Width       int
	Height      int
	ScaleFactor float64
	IsMobile    bool
}

// RequestOverride replaces parts of an outgoing request.
type RequestOverride struct {
	Method  string
	Body    []byte
	Headers map[string]string
}

// Cookie is the engine independent form of a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

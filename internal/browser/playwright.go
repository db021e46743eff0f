package browser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const DefaultNavigationTimeout = 30 * time.Second

// LaunchOptions configures the Playwright driver and the Chromium instance.
type LaunchOptions struct {
	Headless          bool
	NavigationTimeout time.Duration
	Logger            *zap.Logger
}

// PlaywrightBrowser is a Browser backed by a Playwright driven Chromium.
type PlaywrightBrowser struct {
	pwClient   *playwright.Playwright // The Playwright client
	browser    playwright.Browser     // The Chromium instance
	navTimeout time.Duration
	logger     *zap.Logger
}

// Launch starts the Playwright driver and a single Chromium instance.
// Browsers are expected to be installed already (see Install).
func Launch(opts LaunchOptions) (*PlaywrightBrowser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		SkipInstallBrowsers: true,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browserInstance, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	logger.Debug("Browser launched", zap.String("version", browserInstance.Version()), zap.Bool("headless", opts.Headless))
	return &PlaywrightBrowser{
		pwClient:   pw,
		browser:    browserInstance,
		navTimeout: opts.NavigationTimeout,
		logger:     logger,
	}, nil
}

// Install downloads the Playwright driver and Chromium, writing progress to w.
func Install(w io.Writer) error {
	err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  true,
		Stdout:   w,
		Stderr:   w,
	})
	if err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	return nil
}

func (b *PlaywrightBrowser) NewContext(opts ContextOptions) (Context, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
		IsMobile: playwright.Bool(opts.IsMobile),
	}
	if opts.ScaleFactor > 0 {
		contextOpts.DeviceScaleFactor = playwright.Float(opts.ScaleFactor)
	}

	context, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	context.SetDefaultNavigationTimeout(float64(b.navTimeout.Milliseconds()))
	return &playwrightContext{context: context, logger: b.logger}, nil
}

// Close shuts down Chromium and then the driver.
func (b *PlaywrightBrowser) Close() error {
	var errs []error
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing browser: %w", err))
		}
	}
	if b.pwClient != nil {
		if err := b.pwClient.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("error stopping playwright client: %w", err))
		}
	}
	return errors.Join(errs...)
}

type playwrightContext struct {
	context playwright.BrowserContext
	logger  *zap.Logger
}

func (c *playwrightContext) NewPage() (Page, error) {
	page, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page, logger: c.logger}, nil
}

func (c *playwrightContext) Cookies() ([]Cookie, error) {
	cookies, err := c.context.Cookies()
	if err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, fromPlaywrightCookie(ck))
	}
	return out, nil
}

func (c *playwrightContext) AddCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	in := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, ck := range cookies {
		in = append(in, toOptionalCookie(ck))
	}
	return c.context.AddCookies(in)
}

func fromPlaywrightCookie(ck playwright.Cookie) Cookie {
	cookie := Cookie{
		Name:     ck.Name,
		Value:    ck.Value,
		Domain:   ck.Domain,
		Path:     ck.Path,
		Expires:  ck.Expires,
		HTTPOnly: ck.HttpOnly,
		Secure:   ck.Secure,
	}
	if ck.SameSite != nil {
		cookie.SameSite = string(*ck.SameSite)
	}
	return cookie
}

func toOptionalCookie(ck Cookie) playwright.OptionalCookie {
	cookie := playwright.OptionalCookie{
		Name:     ck.Name,
		Value:    ck.Value,
		Domain:   playwright.String(ck.Domain),
		Path:     playwright.String(ck.Path),
		Expires:  playwright.Float(ck.Expires),
		HttpOnly: playwright.Bool(ck.HTTPOnly),
		Secure:   playwright.Bool(ck.Secure),
	}
	if ck.SameSite != "" {
		sameSite := playwright.SameSiteAttribute(ck.SameSite)
		cookie.SameSite = &sameSite
	}
	return cookie
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page   playwright.Page
	logger *zap.Logger
}

func (p *playwrightPage) Goto(url string) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	_, err := p.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil})
	return wrapError(err)
}

func (p *playwrightPage) Intercept(url string, override RequestOverride) (func() error, error) {
	opts := continueOptions(override)
	handler := func(route playwright.Route) {
		if err := route.Continue(opts); err != nil {
			p.logger.Warn("Failed to continue intercepted request", zap.String("url", url), zap.Error(err))
		}
	}
	if err := p.page.Route(url, handler); err != nil {
		return nil, fmt.Errorf("failed to register route: %w", err)
	}
	return func() error { return p.page.Unroute(url) }, nil
}

// continueOptions turns an override into the options a route continues with.
// Unset fields leave the original request untouched.
func continueOptions(override RequestOverride) playwright.RouteContinueOptions {
	opts := playwright.RouteContinueOptions{Headers: override.Headers}
	if override.Method != "" {
		opts.Method = playwright.String(override.Method)
	}
	if override.Body != nil {
		opts.PostData = override.Body
	}
	return opts
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	opts := playwright.PageWaitForSelectorOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	_, err := p.page.WaitForSelector(selector, opts)
	return wrapError(err)
}

func (p *playwrightPage) Wait(d time.Duration) {
	p.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (p *playwrightPage) Title() (string, error) {
	return p.page.Title()
}

func (p *playwrightPage) Evaluate(expression string) (any, error) {
	v, err := p.page.Evaluate(expression)
	return v, wrapError(err)
}

func (p *playwrightPage) Screenshot(path string, fullPage bool) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	return wrapError(err)
}

func (p *playwrightPage) Fill(selector, value string) error {
	return wrapError(p.page.Fill(selector, value))
}

func (p *playwrightPage) Click(selector string) error {
	return wrapError(p.page.Click(selector))
}

func (p *playwrightPage) Type(selector, text string) error {
	return wrapError(p.page.Type(selector, text))
}

func (p *playwrightPage) Press(key string) error {
	return wrapError(p.page.Keyboard().Press(key))
}

// kindError tags an engine error with ErrTimeout or ErrNetwork while keeping
// the engine's own message.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return &kindError{kind: ErrTimeout, err: err}
	case strings.Contains(err.Error(), "net::"):
		return &kindError{kind: ErrNetwork, err: err}
	default:
		return err
	}
}

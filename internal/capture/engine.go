// Package capture drives the browser through every configured target and
// device and records one Result per screenshot.
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yingtu35/parker/internal/auth"
	"github.com/yingtu35/parker/internal/browser"
	"github.com/yingtu35/parker/internal/config"
	"github.com/yingtu35/parker/pkg/domain"
)

// DefaultSelectorTimeout bounds the wait_for selector wait.
const DefaultSelectorTimeout = 10 * time.Second

// ErrNoURLs is returned when the document has an empty url list.
var ErrNoURLs = errors.New("no URLs found in config")

// describeScript prefers the meta description and falls back to the first paragraph.
const describeScript = `() => {
	const meta = document.querySelector('meta[name="description"]');
	if (meta) return meta.content;
	const p = document.querySelector('p');
	if (p) return p.textContent.slice(0, 200);
	return '';
}`

// Options are the global capture settings; targets may override waits.
type Options struct {
	OutputDir       string
	Viewport        config.Viewport
	Wait            time.Duration
	WaitFor         string
	FullPage        bool
	SelectorTimeout time.Duration
}

// Engine captures screenshots one at a time with a single browser.
type Engine struct {
	browser browser.Browser
	auth    *auth.Runner
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(b browser.Browser, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SelectorTimeout <= 0 {
		opts.SelectorTimeout = DefaultSelectorTimeout
	}
	return &Engine{
		browser: b,
		auth:    auth.NewRunner(logger),
		opts:    opts,
		logger:  logger.Named("capture"),
		now:     time.Now,
	}
}

// Run captures every target of doc. Per capture failures end up in the
// results; the returned error is reserved for conditions that abort the run
// (no URLs, missing or failing auth, browser setup, cancellation).
func (e *Engine) Run(ctx context.Context, doc *config.Document) ([]Result, error) {
	if len(doc.URLs) == 0 {
		return nil, ErrNoURLs
	}
	needsAuth := doc.NeedsAuth()
	if needsAuth && doc.Auth == nil {
		return nil, auth.ErrMissingRecipe
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	defaultDev := defaultDevice(e.opts.Viewport)
	defaultCtx, err := e.browser.NewContext(defaultDev.contextOptions())
	if err != nil {
		return nil, err
	}
	defer e.closeContext(defaultCtx)

	defaultPage, err := defaultCtx.NewPage()
	if err != nil {
		return nil, err
	}

	var cookies []browser.Cookie
	if needsAuth {
		e.logger.Info("Authenticating")
		if cookies, err = e.auth.Run(defaultCtx, defaultPage, doc.Auth); err != nil {
			return nil, err
		}
	}

	total := len(doc.URLs)
	results := make([]Result, 0, total)
	for i, target := range doc.URLs {
		if target.URL == "" {
			e.logger.Warn("Skipping invalid entry without url", zap.Int("index", i+1), zap.Int("total", total))
			continue
		}

		names := target.Devices
		if len(names) == 0 {
			names = []string{DefaultDevice}
		}

		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return results, fmt.Errorf("capture interrupted: %w", err)
			}

			var result Result
			if name == DefaultDevice {
				result = e.capture(defaultPage, target, defaultDev, i+1, total)
			} else {
				device, ok := LookupDevice(name)
				if !ok {
					e.logger.Warn("Unknown device, skipping", zap.String("device", name), zap.String("url", target.URL))
					continue
				}
				result = e.captureOnDevice(target, device, cookies, i+1, total)
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// captureOnDevice runs a capture in a fresh context that only lives for this
// target/device pair.
func (e *Engine) captureOnDevice(target config.Target, device Device, cookies []browser.Cookie, index, total int) Result {
	bctx, err := e.browser.NewContext(device.contextOptions())
	if err != nil {
		return e.failed(target, device, err)
	}
	defer e.closeContext(bctx)

	if err := bctx.AddCookies(cookies); err != nil {
		return e.failed(target, device, fmt.Errorf("failed to add auth cookies: %w", err))
	}
	page, err := bctx.NewPage()
	if err != nil {
		return e.failed(target, device, err)
	}
	return e.capture(page, target, device, index, total)
}

func (e *Engine) capture(page browser.Page, target config.Target, device Device, index, total int) Result {
	result := e.newResult(target, device)

	fields := []zap.Field{
		zap.String("url", target.URL),
		zap.String("file", result.File),
		zap.Int("index", index),
		zap.Int("total", total),
	}
	if target.Method != "" && target.Method != "GET" {
		fields = append(fields, zap.String("method", target.Method))
	}
	if target.RequiresAuth {
		fields = append(fields, zap.Bool("auth", true))
	}
	if result.Device != "" {
		fields = append(fields, zap.String("device", result.Device))
	}
	e.logger.Info("Capturing", fields...)

	title, description, err := e.shoot(page, target, result.File)
	if err != nil {
		result.Status = Classify(err)
		result.Error = err.Error()
		e.logger.Error("Capture failed", zap.String("url", target.URL), zap.String("status", string(result.Status)), zap.Error(err))
		return result
	}

	hash, err := domain.ContentHash(result.File)
	if err != nil {
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusOK
	result.Title = title
	result.PageDescription = description
	result.Hash = hash
	return result
}

// shoot navigates, waits, reads metadata and writes the screenshot to path.
func (e *Engine) shoot(page browser.Page, target config.Target, path string) (string, string, error) {
	if err := e.navigate(page, target); err != nil {
		return "", "", err
	}

	selector := target.WaitFor
	if selector == "" {
		selector = e.opts.WaitFor
	}
	if selector != "" {
		if err := page.WaitForSelector(selector, e.opts.SelectorTimeout); err != nil {
			return "", "", err
		}
	}

	wait := e.opts.Wait
	if target.Wait != nil {
		wait = time.Duration(*target.Wait) * time.Millisecond
	}
	if wait > 0 {
		page.Wait(wait)
	}

	title, err := page.Title()
	if err != nil {
		return "", "", err
	}
	raw, err := page.Evaluate(describeScript)
	if err != nil {
		return "", "", err
	}
	description, _ := raw.(string)

	if err := page.Screenshot(path, e.opts.FullPage); err != nil {
		return "", "", err
	}
	return title, strings.TrimSpace(description), nil
}

// navigate loads the target. A POST with data swaps the outgoing request
// through an intercept that only lives for this navigation.
func (e *Engine) navigate(page browser.Page, target config.Target) error {
	if target.Method != "POST" || isEmptyBody(target.Data) {
		return page.Goto(target.URL)
	}

	override, err := requestOverride(target)
	if err != nil {
		return err
	}
	release, err := page.Intercept(target.URL, override)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			e.logger.Warn("Failed to remove request intercept", zap.String("url", target.URL), zap.Error(err))
		}
	}()
	return page.Goto(target.URL)
}

func requestOverride(target config.Target) (browser.RequestOverride, error) {
	override := browser.RequestOverride{Method: "POST", Headers: target.Headers}

	if body, ok := target.Data.(string); ok {
		override.Body = []byte(body)
		return override, nil
	}

	body, err := json.Marshal(stringKeys(target.Data))
	if err != nil {
		return override, fmt.Errorf("failed to encode request body: %w", err)
	}
	override.Body = body

	headers := make(map[string]string, len(target.Headers)+1)
	hasContentType := false
	for k, v := range target.Headers {
		headers[k] = v
		if strings.EqualFold(k, "Content-Type") {
			hasContentType = true
		}
	}
	if !hasContentType {
		headers["Content-Type"] = "application/json"
	}
	override.Headers = headers
	return override, nil
}

// isEmptyBody reports whether data would post nothing: nil, "", {} or [].
func isEmptyBody(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case map[any]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

// stringKeys rewrites YAML mappings with non-string keys so they encode as
// JSON objects. Keys are stringified with fmt.Sprint.
func stringKeys(data any) any {
	switch v := data.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = stringKeys(val)
		}
		return out
	}
	return data
}

func (e *Engine) newResult(target config.Target, device Device) Result {
	base := target.Name
	if base == "" {
		base = domain.SanitizeFilename(target.URL)
	}
	filename := base + device.Suffix() + ".png"

	result := Result{
		URL:          target.URL,
		File:         filepath.Join(e.opts.OutputDir, filename),
		Filename:     filename,
		RequiresAuth: target.RequiresAuth,
		Viewport:     device.viewport(),
		Description:  target.Description,
		CapturedAt:   e.now().UTC(),
	}
	if device.Name != DefaultDevice {
		result.Device = device.Name
	}
	return result
}

func (e *Engine) failed(target config.Target, device Device, err error) Result {
	result := e.newResult(target, device)
	result.Status = Classify(err)
	result.Error = err.Error()
	e.logger.Error("Capture failed", zap.String("url", target.URL), zap.String("device", device.Name), zap.Error(err))
	return result
}

func (e *Engine) closeContext(bctx browser.Context) {
	if err := bctx.Close(); err != nil {
		e.logger.Warn("Failed to close browser context", zap.Error(err))
	}
}

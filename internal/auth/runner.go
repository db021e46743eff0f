// Package auth runs a login recipe against a live page and hands back the
// resulting cookies so later browsing contexts can reuse the session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yingtu35/parker/internal/browser"
)

// WaitForTimeout bounds a wait_for step.
const WaitForTimeout = 30 * time.Second

var (
	// ErrMissingRecipe is returned when a target needs auth but no recipe exists.
	ErrMissingRecipe = errors.New("urls require auth but no 'auth' config defined")
	// ErrFailed wraps the first failing step of a recipe.
	ErrFailed = errors.New("authentication failed")
)

// Runner executes recipes strictly in order and stops at the first failure.
type Runner struct {
	logger *zap.Logger
}

func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger.Named("auth")}
}

// Run logs in on page and returns the cookies of session afterwards.
func (r *Runner) Run(session browser.Context, page browser.Page, recipe *Recipe) ([]browser.Cookie, error) {
	if recipe == nil {
		return nil, ErrMissingRecipe
	}

	r.logger.Info("Navigating to login page", zap.String("url", recipe.URL))
	if err := page.Goto(recipe.URL); err != nil {
		return nil, fmt.Errorf("%w: navigating to %s: %w", ErrFailed, recipe.URL, err)
	}

	for i, step := range recipe.Steps {
		if err := r.apply(page, step); err != nil {
			r.logger.Error("Auth step failed", zap.Int("step", i), zap.String("kind", step.Kind()), zap.Error(err))
			return nil, fmt.Errorf("%w: step %d (%s): %w", ErrFailed, i, step.Kind(), err)
		}
	}

	cookies, err := session.Cookies()
	if err != nil {
		return nil, fmt.Errorf("%w: reading cookies: %w", ErrFailed, err)
	}
	r.logger.Info("Auth completed", zap.Int("cookies", len(cookies)))
	return cookies, nil
}

func (r *Runner) apply(page browser.Page, step Step) error {
	switch s := step.(type) {
	case Fill:
		r.logger.Info("Fill", zap.String("selector", s.Selector))
		return page.Fill(s.Selector, s.Value)
	case Click:
		r.logger.Info("Click", zap.String("selector", s.Selector))
		return page.Click(s.Selector)
	case Wait:
		r.logger.Info("Wait", zap.Duration("duration", s.Duration))
		page.Wait(s.Duration)
		return nil
	case WaitFor:
		r.logger.Info("Wait for", zap.String("selector", s.Selector))
		return page.WaitForSelector(s.Selector, WaitForTimeout)
	case Type:
		r.logger.Info("Type", zap.String("selector", s.Selector))
		return page.Type(s.Selector, s.Value)
	case Press:
		r.logger.Info("Press", zap.String("key", s.Key))
		return page.Press(s.Key)
	case Goto:
		r.logger.Info("Goto", zap.String("url", s.URL))
		return page.Goto(s.URL)
	default:
		return fmt.Errorf("unsupported step %T", step)
	}
}

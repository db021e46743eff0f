package capture

import (
	"errors"
	"strings"
	"time"

	"github.com/yingtu35/parker/internal/browser"
)

// Status is the outcome of a single capture.
type Status string

const (
	StatusOK           Status = "ok"
	StatusTimeout      Status = "timeout"
	StatusNetworkError Status = "network_error"
	StatusError        Status = "error"
)

// Result describes one (target, device) capture. It is never modified after
// the engine returns it.
type Result struct {
	URL             string    `json:"url"`
	File            string    `json:"file"`
	Filename        string    `json:"filename"`
	Status          Status    `json:"status"`
	RequiresAuth    bool      `json:"auth"`
	Device          string    `json:"device,omitempty"`
	Viewport        string    `json:"viewport"`
	Title           string    `json:"title,omitempty"`
	PageDescription string    `json:"page_description,omitempty"`
	Hash            string    `json:"hash,omitempty"`
	Error           string    `json:"error,omitempty"`
	Description     string    `json:"description,omitempty"`
	CapturedAt      time.Time `json:"captured_at"`
}

// OK reports whether the capture succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

// Classify maps a capture error onto a Status.
func Classify(err error) Status {
	if err == nil {
		return StatusOK
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, browser.ErrTimeout), strings.Contains(msg, "timeout"):
		return StatusTimeout
	case errors.Is(err, browser.ErrNetwork), strings.Contains(msg, "net::"):
		return StatusNetworkError
	default:
		return StatusError
	}
}

// Summary counts results by outcome.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Failed   int `json:"failed"`
	Timeouts int `json:"timeouts"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusTimeout:
			s.Timeouts++
		}
	}
	s.Failed = s.Total - s.OK
	return s
}

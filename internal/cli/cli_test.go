package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yingtu35/parker/internal/browser"
	"github.com/yingtu35/parker/internal/browser/browsertest"
	"github.com/yingtu35/parker/internal/capture"
	"github.com/yingtu35/parker/internal/config"
	"github.com/yingtu35/parker/internal/export"
	"github.com/yingtu35/parker/internal/observability"
)

// harness runs the command tree against a fake browser.
type harness struct {
	browser   *browsertest.Browser
	launched  []browser.LaunchOptions
	launchErr error
	installed bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	return &harness{browser: browsertest.New()}
}

func (h *harness) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&app{
		v: viper.New(),
		launch: func(opts browser.LaunchOptions) (browser.Browser, error) {
			h.launched = append(h.launched, opts)
			if h.launchErr != nil {
				return nil, h.launchErr
			}
			return h.browser, nil
		},
		install: func(w io.Writer) error {
			h.installed = true
			_, err := io.WriteString(w, "downloading chromium\n")
			return err
		},
		now: func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const twoURLs = `
urls:
  - https://example.com/
  - url: https://example.com/pricing
    description: Pricing
    devices: [desktop, mobile]
`

func TestRun_Success(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "shots")
	cfg := writeConfig(t, twoURLs)

	stdout, _, err := h.run("-c", cfg, "-o", out, "--html", "--csv", "--headless=false")
	require.NoError(t, err)
	assert.Equal(t, ExitSuccess, ExitCode(err))

	assert.Contains(t, stdout, "Parker - Auto Screenshot Tool")
	assert.Contains(t, stdout, "Viewport: 1280x720")
	assert.Contains(t, stdout, "Done! 3/3 screenshots captured.")
	assert.NotContains(t, stdout, "Errors:")
	assert.Contains(t, stdout, "example-com-pricing-mobile.png")

	for _, name := range []string{"example-com.png", "example-com-pricing-desktop.png", "example-com-pricing-mobile.png", export.ManifestFile, export.HTMLFile, export.CSVFile} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	require.Len(t, h.launched, 1)
	assert.False(t, h.launched[0].Headless)
	assert.Equal(t, browser.DefaultNavigationTimeout, h.launched[0].NavigationTimeout)
	assert.True(t, h.browser.Closed())

	m, err := export.ReadManifest(filepath.Join(out, export.ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, cfg, m.Config)
	assert.Equal(t, capture.Summary{Total: 3, OK: 3}, m.Summary)
	assert.Equal(t, time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC), m.GeneratedAt)
}

func TestRun_NoReportsByDefault(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "shots")

	_, _, err := h.run("-c", writeConfig(t, "urls:\n  - https://example.com/\n"), "-o", out)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, export.ManifestFile))
	assert.NoFileExists(t, filepath.Join(out, export.HTMLFile))
}

func TestRun_FlagsReachTheEngine(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "shots")

	_, _, err := h.run("-c", writeConfig(t, "urls:\n  - https://example.com/\n"), "-o", out,
		"--viewport", "800X600", "--wait", "250", "--wait-for", "#app", "--selector-timeout", "3s", "--navigation-timeout", "5s")
	require.NoError(t, err)

	assert.Equal(t, []string{"context 800x600"}, h.browser.CallsWithPrefix("context"))
	assert.Equal(t, []string{"wait_for #app 3s"}, h.browser.CallsWithPrefix("wait_for"))
	assert.Equal(t, []string{"wait 250ms"}, h.browser.CallsWithPrefix("wait "))
	assert.Equal(t, 5*time.Second, h.launched[0].NavigationTimeout)
}

func TestRun_EnvironmentOverridesDefaults(t *testing.T) {
	h := newHarness(t)
	t.Setenv("PARKER_VIEWPORT", "1024x768")
	t.Setenv("PARKER_WAIT_FOR", "main")

	_, _, err := h.run("-c", writeConfig(t, "urls:\n  - https://example.com/\n"), "-o", filepath.Join(t.TempDir(), "shots"))
	require.NoError(t, err)
	assert.Equal(t, []string{"context 1024x768"}, h.browser.CallsWithPrefix("context"))
	assert.Equal(t, []string{"wait_for main 10s"}, h.browser.CallsWithPrefix("wait_for"))
}

func TestRun_PartialFailure(t *testing.T) {
	h := newHarness(t)
	h.browser.Errors["goto https://example.com/pricing"] = errors.New("net::ERR_CONNECTION_RESET")

	stdout, _, err := h.run("-c", writeConfig(t, twoURLs), "-o", filepath.Join(t.TempDir(), "shots"))
	assert.Equal(t, ExitPartial, ExitCode(err))
	assert.Contains(t, stdout, "Done! 1/3 screenshots captured.")
	assert.Contains(t, stdout, "Errors: 2")
	assert.Contains(t, stdout, "network_error")
}

func TestRun_AllFailed(t *testing.T) {
	h := newHarness(t)
	h.browser.Errors["goto https://example.com/"] = errors.New("Timeout 30000ms exceeded")

	stdout, _, err := h.run("-c", writeConfig(t, "urls:\n  - https://example.com/\n"), "-o", filepath.Join(t.TempDir(), "shots"))
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, stdout, "Done! 0/1 screenshots captured.")
	assert.Contains(t, stdout, "Timeouts: 1")
}

func TestRun_CriticalFailures(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
	}{
		{name: "no urls", config: "urls: []\n"},
		{name: "missing auth recipe", config: "urls:\n  - url: https://example.com/\n    auth: true\n"},
		{name: "invalid viewport", config: twoURLs, args: []string{"--viewport", "wide"}},
		{name: "malformed auth step", config: "urls:\n  - https://example.com/\nauth:\n  url: https://example.com/login\n  steps:\n    - hover: '#x'\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			args := append([]string{"-c", writeConfig(t, tt.config), "-o", filepath.Join(t.TempDir(), "shots")}, tt.args...)

			_, _, err := h.run(args...)
			assert.Equal(t, ExitFailure, ExitCode(err))
			assert.Empty(t, h.browser.CallsWithPrefix("goto"))
			assert.Empty(t, h.browser.CallsWithPrefix("screenshot"))
		})
	}
}

func TestRun_MissingConfigFile(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run("-c", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Empty(t, h.launched)
}

func TestRun_ConfigFlagRequired(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run()
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun_AuthFailure(t *testing.T) {
	h := newHarness(t)
	h.browser.Errors["click #go"] = errors.New("element is not attached to the DOM")
	cfg := writeConfig(t, `
urls:
  - url: https://app.example.com/dashboard
    auth: true
auth:
  url: https://app.example.com/login
  steps:
    - fill: "#user"
      value: alice
    - click: "#go"
`)

	_, _, err := h.run("-c", cfg, "-o", filepath.Join(t.TempDir(), "shots"))
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Empty(t, h.browser.CallsWithPrefix("screenshot"))
	assert.True(t, h.browser.Closed(), "the browser is closed on the failure path")
}

func TestRun_LaunchFailure(t *testing.T) {
	h := newHarness(t)
	h.launchErr = errors.New("chromium not installed")

	_, _, err := h.run("-c", writeConfig(t, twoURLs), "-o", filepath.Join(t.TempDir(), "shots"))
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.ErrorContains(t, err, "chromium not installed")
}

func TestRun_LogsGoToStderr(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, err := h.run("-c", writeConfig(t, "urls:\n  - https://example.com/\n"), "-o", filepath.Join(t.TempDir(), "shots"), "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"Capturing"`)
	assert.NotContains(t, stdout, `"msg"`)
}

func TestInstallCmd(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("install")
	require.NoError(t, err)
	assert.True(t, h.installed)
	assert.Contains(t, stdout, "downloading chromium")
	assert.Empty(t, h.launched)
}

func TestVersionFlag(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run("--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", stdout)
}

func writeManifest(t *testing.T, dir string, results ...capture.Result) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	m := export.NewManifest("urls.yaml", dir, config.Viewport{Width: 1280, Height: 720}, results, time.Now())
	path, err := export.NewJSONExporter().Export(m, dir)
	require.NoError(t, err)
	return path
}

func TestDiffCmd(t *testing.T) {
	base := t.TempDir()
	home := capture.Result{URL: "https://example.com/", Filename: "example-com.png", Status: capture.StatusOK, Hash: "aaaaaaaaaaaa"}
	docs := capture.Result{URL: "https://example.com/docs", Filename: "example-com-docs.png", Status: capture.StatusOK, Hash: "bbbbbbbbbbbb"}
	docsChanged := docs
	docsChanged.Hash = "cccccccccccc"

	prev := writeManifest(t, filepath.Join(base, "old"), home, docs)
	same := writeManifest(t, filepath.Join(base, "same"), home, docs)
	next := writeManifest(t, filepath.Join(base, "new"), home, docsChanged)

	t.Run("no differences", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.run("diff", prev, same)
		require.NoError(t, err)
		assert.Contains(t, stdout, "0 changed, 0 added, 0 removed, 2 unchanged")
	})

	t.Run("changed hash", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.run("diff", prev, next)
		assert.Equal(t, ExitPartial, ExitCode(err))
		assert.Contains(t, stdout, "example-com-docs.png")
		assert.Contains(t, stdout, "cccccccccccc")
		assert.NotContains(t, stdout, "aaaaaaaaaaaa", "unchanged files are not listed")
		assert.Contains(t, stdout, "1 changed, 0 added, 0 removed, 1 unchanged")
	})

	t.Run("unreadable manifest", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.run("diff", prev, filepath.Join(base, "missing.json"))
		assert.Equal(t, ExitFailure, ExitCode(err))
	})

	t.Run("wrong arity", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.run("diff", prev)
		assert.Equal(t, ExitFailure, ExitCode(err))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitPartial, ExitCode(&exitError{code: ExitPartial, err: errors.New("x")}))

	assert.NoError(t, outcome(capture.Summary{}))
	assert.NoError(t, outcome(capture.Summary{Total: 2, OK: 2}))
	assert.Equal(t, ExitPartial, ExitCode(outcome(capture.Summary{Total: 2, OK: 1, Failed: 1})))
	assert.Equal(t, ExitFailure, ExitCode(outcome(capture.Summary{Total: 2, Failed: 2})))
}

func TestDiscoverCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, `<html><head><title>Home</title></head><body><a href="/guide">Guide</a></body></html>`)
		case "/guide":
			_, _ = io.WriteString(w, `<html><head><title>Guide</title></head></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Run("stdout", func(t *testing.T) {
		h := newHarness(t)
		stdout, _, err := h.run("discover", srv.URL, "--depth", "1")
		require.NoError(t, err)
		assert.Contains(t, stdout, "url: "+srv.URL+"/guide")
		assert.Contains(t, stdout, "description: Guide")
	})

	t.Run("file feeds a capture run", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "urls.yaml")
		stdout, _, err := h.run("discover", srv.URL, "-f", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Wrote 2 URLs")

		observability.ResetForTest()
		stdout, _, err = h.run("-c", path, "-o", filepath.Join(t.TempDir(), "shots"))
		require.NoError(t, err)
		assert.Contains(t, stdout, "Done! 2/2 screenshots captured.")
	})

	t.Run("bad url", func(t *testing.T) {
		h := newHarness(t)
		_, _, err := h.run("discover", "not a url")
		assert.Equal(t, ExitFailure, ExitCode(err))
	})
}

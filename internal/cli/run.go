package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rodaine/table"
	"go.uber.org/zap"

	"github.com/yingtu35/parker/internal/browser"
	"github.com/yingtu35/parker/internal/capture"
	"github.com/yingtu35/parker/internal/config"
	"github.com/yingtu35/parker/internal/export"
	"github.com/yingtu35/parker/internal/observability"
)

// runCapture loads the document, captures every target and writes the
// requested reports. The returned error carries the exit code.
func (a *app) runCapture(ctx context.Context, s *config.Settings, out io.Writer) error {
	logger := observability.GetLogger()

	doc, err := config.Load(s.ConfigPath)
	if err != nil {
		return &exitError{code: ExitFailure, err: err}
	}

	fmt.Fprintln(out, "Parker - Auto Screenshot Tool")
	fmt.Fprintf(out, "Config: %s\n", s.ConfigPath)
	fmt.Fprintf(out, "Output: %s\n", s.Output)
	fmt.Fprintf(out, "Viewport: %s\n", s.Size)
	if s.WaitFor != "" {
		fmt.Fprintf(out, "Wait for: %s\n", s.WaitFor)
	}
	fmt.Fprintln(out)

	b, err := a.launch(browser.LaunchOptions{
		Headless:          s.Headless,
		NavigationTimeout: s.NavigationTimeout,
		Logger:            logger,
	})
	if err != nil {
		return &exitError{code: ExitFailure, err: err}
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}()

	engine := capture.NewEngine(b, capture.Options{
		OutputDir:       s.Output,
		Viewport:        s.Size,
		Wait:            time.Duration(s.Wait) * time.Millisecond,
		WaitFor:         s.WaitFor,
		FullPage:        s.FullPage,
		SelectorTimeout: s.SelectorTimeout,
	}, logger)

	results, err := engine.Run(ctx, doc)
	if err != nil {
		return &exitError{code: ExitFailure, err: err}
	}

	manifest := export.NewManifest(s.ConfigPath, s.Output, s.Size, results, a.now())
	for _, r := range reportsFor(s) {
		path, err := r.exporter.Export(manifest, s.Output)
		if err != nil {
			return &exitError{code: ExitFailure, err: err}
		}
		fmt.Fprintf(out, "%s: %s\n", r.label, path)
	}

	printResults(out, results)
	printSummary(out, manifest.Summary)
	return outcome(manifest.Summary)
}

type report struct {
	label    string
	exporter export.Exporter
}

// reportsFor lists the exporters the flags ask for. The gallery reads the
// manifest, so --html also writes manifest.json.
func reportsFor(s *config.Settings) []report {
	var reports []report
	if s.Manifest || s.HTML {
		reports = append(reports, report{"Manifest", export.NewJSONExporter()})
	}
	if s.HTML {
		reports = append(reports, report{"HTML Report", export.NewHTMLExporter()})
	}
	if s.CSV {
		reports = append(reports, report{"CSV", export.NewCSVExporter()})
	}
	return reports
}

func printResults(out io.Writer, results []capture.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(out)
	tbl := table.New("URL", "Device", "Status", "File").WithWriter(out)
	for _, r := range results {
		device := r.Device
		if device == "" {
			device = capture.DefaultDevice
		}
		file := r.Filename
		if !r.OK() {
			file = r.Error
		}
		tbl.AddRow(r.URL, device, r.Status, file)
	}
	tbl.Print()
}

func printSummary(out io.Writer, s capture.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Done! %d/%d screenshots captured.\n", s.OK, s.Total)
	if s.Timeouts > 0 {
		fmt.Fprintf(out, "  Timeouts: %d\n", s.Timeouts)
	}
	if s.Failed > 0 {
		fmt.Fprintf(out, "  Errors: %d\n", s.Failed)
	}
}

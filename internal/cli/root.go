// Package cli wires the parker command line together.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yingtu35/parker/internal/browser"
	"github.com/yingtu35/parker/internal/capture"
	"github.com/yingtu35/parker/internal/config"
	"github.com/yingtu35/parker/internal/observability"
)

// Launcher starts the browser a run captures with.
type Launcher func(browser.LaunchOptions) (browser.Browser, error)

func launchPlaywright(opts browser.LaunchOptions) (browser.Browser, error) {
	return browser.Launch(opts)
}

// app carries the collaborators a command needs. Tests swap them out.
type app struct {
	v       *viper.Viper
	launch  Launcher
	install func(io.Writer) error
	now     func() time.Time
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd(launchPlaywright)
	err := cmd.ExecuteContext(ctx)
	code := ExitCode(err)
	if code == ExitFailure {
		observability.GetLogger().Error("Parker failed", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	observability.Sync()
	return code
}

// NewRootCmd builds a fresh command tree with its own viper instance.
func NewRootCmd(launch Launcher) *cobra.Command {
	return newRootCmd(&app{
		v:       viper.New(),
		launch:  launch,
		install: browser.Install,
		now:     time.Now,
	})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parker -c urls.yaml",
		Short: "Parker captures documentation screenshots from a list of URLs.",
		Long: `Parker captures documentation screenshots from a list of URLs.

Examples:
  parker -c urls.yaml                         # Basic usage
  parker -c urls.yaml -o ./docs/images        # Custom output dir
  parker -c urls.yaml --wait-for "#app"       # Wait for element
  parker -c urls.yaml --html                  # Generate HTML gallery

Exit codes:
  0 - All screenshots captured successfully
  1 - Some screenshots failed (partial success)
  2 - Critical error (auth failed, no URLs, etc.)`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.NewSettingsFromViper(a.v)
			if err != nil {
				return &exitError{code: ExitFailure, err: err}
			}
			return a.runCapture(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := rootCmd.Flags()
	flags.StringP("config", "c", "", "YAML config file with URLs")
	flags.StringP("output", "o", "./screenshots", "Output directory")
	flags.String("viewport", "1280x720", "Viewport size WIDTHxHEIGHT")
	flags.Int("wait", 0, "Extra wait time in ms after page load")
	flags.String("wait-for", "", "Wait for CSS selector before capture")
	flags.Bool("full-page", false, "Capture full page screenshot")
	flags.Bool("manifest", false, "Generate manifest.json")
	flags.Bool("html", false, "Generate HTML gallery report (implies --manifest)")
	flags.Bool("csv", false, "Generate manifest.csv")
	flags.Bool("headless", true, "Run the browser headless")
	flags.Duration("selector-timeout", capture.DefaultSelectorTimeout, "Timeout for --wait-for and per-URL wait_for")
	flags.Duration("navigation-timeout", browser.DefaultNavigationTimeout, "Timeout for page navigation")

	persistent := rootCmd.PersistentFlags()
	persistent.String("log-level", "info", "Log level (debug, info, warn, error)")
	persistent.String("log-format", "console", "Log format (console, json)")
	persistent.String("log-file", "", "Also write JSON logs to this file")

	rootCmd.AddCommand(newInstallCmd(a), newDiffCmd(), newDiscoverCmd(a))
	return rootCmd
}

// initialize binds flags and the environment into viper and sets up logging.
func (a *app) initialize(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("PARKER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
	config.SetDefaults(a.v)

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"logger.level":    "log-level",
		"logger.format":   "log-format",
		"logger.log_file": "log-file",
	} {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	// Decode the whole tree: nested keys bound to flags are only visible
	// through AllSettings.
	var s config.Settings
	if err := a.v.Unmarshal(&s); err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "parker"})
		return fmt.Errorf("failed to read logger settings: %w", err)
	}
	observability.Initialize(s.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	observability.GetLogger().Debug("Starting parker", zap.String("version", Version))
	return nil
}

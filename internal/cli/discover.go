package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yingtu35/parker/internal/discover"
	"github.com/yingtu35/parker/internal/observability"
)

func newDiscoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover URL",
		Short: "Crawl a site and print a starter URL list",
		Long: `Crawl same domain links from URL and print a YAML URL list that parker -c
accepts, with each page title as the description.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			crawler, err := discover.NewCrawler(args[0], discover.Options{
				MaxDepth:       a.v.GetInt("depth"),
				MaxConcurrency: a.v.GetInt("concurrency"),
				Timeout:        a.v.GetDuration("timeout"),
			}, logger)
			if err != nil {
				return err
			}

			pages, err := crawler.Crawl(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("Discovery finished", zap.String("url", args[0]), zap.Int("pages", len(pages)))

			path := a.v.GetString("file")
			if path == "" {
				return discover.WriteConfig(cmd.OutOrStdout(), pages)
			}
			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			defer file.Close()
			if err := discover.WriteConfig(file, pages); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d URLs to %s\n", len(pages), path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("depth", discover.DefaultMaxDepth, "Maximum link depth to follow")
	flags.Int("concurrency", discover.DefaultMaxConcurrency, "Maximum concurrent requests")
	flags.Duration("timeout", discover.DefaultTimeout, "Timeout per request")
	flags.StringP("file", "f", "", "Write the URL list to this file instead of stdout")
	return cmd
}

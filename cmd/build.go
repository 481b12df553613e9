package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/metrics"
)

// newBuildCmd creates the 'build' subcommand, which runs one full crawl.
func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Generate the site from the root document",
		Long: `Crawls the document graph breadth-first from the root document and
writes index.html for the root plus p/<slug>/index.html for every other
reachable document. Any document fetch or write failure aborts the build.`,
		RunE: runBuildCommand,
	}
}

func runBuildCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := appInstance.Logger()
	summary, err := appInstance.Build(ctx)
	if textfile := appInstance.Config().Metrics.Textfile; textfile != "" {
		if werr := metrics.WriteTextfile(textfile); werr != nil {
			logger.Warn("write metrics textfile failed", zap.String("path", textfile), zap.Error(werr))
		}
	}
	if err != nil {
		return fmt.Errorf("build site: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "built %d pages (%d images, %d links) in %s\n",
		summary.Pages, summary.Images, summary.Links, summary.Duration)
	return nil
}

// Package cmd — export command.
// Renders selected posts to standalone Markdown or PDF files instead
// of a packaged EPUB.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/api"
	"github.com/Fox6935/kemono-epub-creator/core/encode"
	"github.com/Fox6935/kemono-epub-creator/core/export"
	"github.com/Fox6935/kemono-epub-creator/core/normalize"
	"github.com/Fox6935/kemono-epub-creator/core/output"
)

var (
	flagExportPosts    string
	flagExportFirst    int
	flagExportLast     int
	flagExportAll      bool
	flagExportMarkdown bool
	flagExportPDF      bool
	flagExportDir      string
)

var exportCmd = &cobra.Command{
	Use:   "export <service> <creator-id>",
	Short: "Export posts as individual Markdown or PDF files",
	Long: `Export fetches selected posts and writes one file per post in the
chosen format.

Examples:
  kepub export patreon 12345 --all --markdown
  kepub export fanbox 67890 --first 5 --pdf --output_dir ./out`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&flagExportPosts, "posts", "", "Comma-separated post ids to include")
	exportCmd.Flags().IntVar(&flagExportFirst, "first", 0, "Include only the newest N posts")
	exportCmd.Flags().IntVar(&flagExportLast, "last", 0, "Include only the oldest N posts")
	exportCmd.Flags().BoolVar(&flagExportAll, "all", false, "Include every post")

	exportCmd.Flags().BoolVar(&flagExportMarkdown, "markdown", false, "Output Markdown")
	exportCmd.Flags().BoolVar(&flagExportPDF, "pdf", false, "Output PDF")
	exportCmd.Flags().StringVar(&flagExportDir, "output_dir", "", "Output directory (default: current directory)")
}

// selectExporter picks the exporter from the format flags, which are
// mutually exclusive.
func selectExporter() (core.Exporter, error) {
	switch {
	case flagExportMarkdown && flagExportPDF:
		return nil, fmt.Errorf("--markdown and --pdf are mutually exclusive")
	case flagExportMarkdown:
		return export.NewMarkdownExporter(), nil
	case flagExportPDF:
		return export.NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("exactly one output format is required: --markdown or --pdf")
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	service, creatorID := args[0], args[1]

	exporter, err := selectExporter()
	if err != nil {
		return err
	}

	sel := selection{first: flagExportFirst, last: flagExportLast, all: flagExportAll}
	if flagExportPosts != "" {
		sel.ids = strings.Split(flagExportPosts, ",")
	}
	if err := sel.validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagExportDir == "" {
		flagExportDir = cfg.OutputDir
	}
	writer, err := output.New(flagExportDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	client := api.New(api.Options{
		SiteURL:   cfg.SiteURL,
		UserAgent: cfg.UserAgent,
		Limiter:   api.NewRateLimiter(cfg.RateDelay()),
	})
	// Exported files are standalone, so images stay remote links
	// instead of being fetched into an archive.
	normalizer := normalize.New(client, encode.New(false), normalize.Options{
		SiteBaseURL: cfg.SiteURL,
		DataBaseURL: cfg.DataURL,
		LinkOnly:    true,
	})

	ctx := context.Background()

	stubs, err := fetchAllStubs(ctx, client, service, creatorID)
	if err != nil {
		return err
	}
	selected, err := sel.apply(stubs)
	if err != nil {
		return err
	}

	var errCount int
	for i, stub := range selected {
		fmt.Fprintf(os.Stdout, "[%d/%d] Exporting %s\n", i+1, len(selected), stub.Title)

		detail, err := client.GetPostDetail(ctx, service, creatorID, stub.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}

		result, err := normalizer.Normalize(ctx, detail.ID, detail.ContentHTML, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}

		data, err := exporter.Render(detail, result.Markup)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}

		path, err := writer.SavePost(data, detail.Title, detail.ID, exporter.Extension())
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Write error: %v\n", err)
			errCount++
			continue
		}
		fmt.Fprintf(os.Stdout, "  ✓ Written: %s\n", path)
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d posts failed\n", errCount, len(selected))
	}
	return nil
}

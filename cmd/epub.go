// Package cmd — epub command.
// Orchestrates the main pipeline: list → select → generate → save.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Fox6935/kemono-epub-creator/core"
	"github.com/Fox6935/kemono-epub-creator/core/api"
	"github.com/Fox6935/kemono-epub-creator/core/generate"
	"github.com/Fox6935/kemono-epub-creator/core/output"
)

var (
	flagPosts             string
	flagFirst             int
	flagLast              int
	flagAll               bool
	flagTitle             string
	flagCreatorName       string
	flagCover             string
	flagEpub2             bool
	flagForcePNG          bool
	flagKeepQueryVariants bool
	flagNoPrefetch        bool
	flagOutputDir         string
	flagOutputFile        string
)

var epubCmd = &cobra.Command{
	Use:   "epub <service> <creator-id>",
	Short: "Build an EPUB from a creator's posts",
	Long: `Epub lists the creator's posts, filters them down to your selection,
and packages them as chapters of a single EPUB, oldest first.

Examples:
  kepub epub patreon 12345 --all
  kepub epub fanbox 67890 --first 20 --cover https://example.com/cover.jpg
  kepub epub patreon 12345 --posts 111,222,333 -o book.epub`,
	Args: cobra.ExactArgs(2),
	RunE: runEpub,
}

func init() {
	rootCmd.AddCommand(epubCmd)

	epubCmd.Flags().StringVar(&flagPosts, "posts", "", "Comma-separated post ids to include")
	epubCmd.Flags().IntVar(&flagFirst, "first", 0, "Include only the newest N posts")
	epubCmd.Flags().IntVar(&flagLast, "last", 0, "Include only the oldest N posts")
	epubCmd.Flags().BoolVar(&flagAll, "all", false, "Include every post")

	epubCmd.Flags().StringVar(&flagTitle, "title", "", "Book title (default: creator name)")
	epubCmd.Flags().StringVar(&flagCreatorName, "creator-name", "", "Override the creator display name")
	epubCmd.Flags().StringVar(&flagCover, "cover", "", "Cover image URL")
	epubCmd.Flags().BoolVar(&flagEpub2, "epub2", false, "Target EPUB 2 instead of EPUB 3")
	epubCmd.Flags().BoolVar(&flagForcePNG, "force-png", false, "Re-encode every raster image to PNG")
	epubCmd.Flags().BoolVar(&flagKeepQueryVariants, "keep-query-variants", false, "Treat asset URLs differing only in query string as distinct")
	epubCmd.Flags().BoolVar(&flagNoPrefetch, "no-prefetch", false, "Disable the bulk-prefetch optimization")

	epubCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	epubCmd.Flags().StringVarP(&flagOutputFile, "output", "o", "", "Output filename (default: derived from the title)")
}

func runEpub(cmd *cobra.Command, args []string) error {
	service, creatorID := args[0], args[1]

	sel := selection{first: flagFirst, last: flagLast, all: flagAll}
	if flagPosts != "" {
		sel.ids = strings.Split(flagPosts, ",")
	}
	if err := sel.validate(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagOutputDir == "" {
		flagOutputDir = cfg.OutputDir
	}

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	client := api.New(api.Options{
		SiteURL:   cfg.SiteURL,
		UserAgent: cfg.UserAgent,
		Limiter:   api.NewRateLimiter(cfg.RateDelay()),
	})

	ctx := context.Background()

	fmt.Fprintf(os.Stdout, "Listing posts for %s/%s...\n", service, creatorID)
	stubs, err := fetchAllStubs(ctx, client, service, creatorID)
	if err != nil {
		return err
	}
	selected, err := sel.apply(stubs)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("no posts selected (creator has %d posts)", len(stubs))
	}
	fmt.Fprintf(os.Stdout, "Selected %d of %d posts\n", len(selected), len(stubs))

	gen := generate.New(client, generate.Options{
		Creator: core.CreatorInfo{
			Service:     service,
			CreatorID:   creatorID,
			DisplayName: flagCreatorName,
		},
		Title:             flagTitle,
		CoverURL:          flagCover,
		Prefetch:          !flagNoPrefetch,
		ForcePNG:          flagForcePNG,
		KeepQueryVariants: flagKeepQueryVariants,
		EpubVersion:       epubVersion(),
		SiteBaseURL:       cfg.SiteURL,
		DataBaseURL:       cfg.DataURL,
	}, printProgress)

	blob, err := gen.Generate(ctx, selected)
	if err != nil {
		return err
	}

	filename := flagOutputFile
	if filename == "" {
		title := flagTitle
		if title == "" {
			title = fmt.Sprintf("%s_%s", service, creatorID)
		}
		filename = title + ".epub"
	}
	path, err := writer.Save(blob, filename)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Written: %s\n", path)
	return nil
}

func epubVersion() int {
	if flagEpub2 {
		return 2
	}
	return 3
}

// printProgress renders generation progress on stdout.
func printProgress(percent float64, message string) {
	if percent == core.ProgressMessageOnly {
		fmt.Fprintf(os.Stdout, "        %s\n", message)
		return
	}
	fmt.Fprintf(os.Stdout, "[%3.0f%%] %s\n", percent, message)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goprodl/pkg/auth"
	"goprodl/pkg/config"
	"goprodl/pkg/downloader"
	"goprodl/pkg/gopro"
	"goprodl/pkg/logger"
	"goprodl/pkg/store"
	"goprodl/pkg/ui"
)

var (
	// Download command flags
	authFile    string
	accountName string
	dateRange   string
	mediaType   string
	chunkSize   int
	perPage     int
	outputDir   string
	storePath   string
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download pending media into per-date ZIP archives",
	Long: `Download all media from your GoPro Plus cloud that has not been
fetched yet.

Authentication uses browser cookies. Log into plus.gopro.com and export the
cookies as JSON with an extension like Cookie-Editor, then either pass the
file with --auth or import it once with 'goprodl auth import'.

Media is grouped by capture date; each date gets its own ZIP archive in the
output directory. Downloaded items are recorded in a local database file and
skipped on later runs. Delete that file to start from scratch.`,
	Example: `  # Download everything using an exported cookie file
  goprodl download --auth cookies.json

  # Only videos captured in July 2024
  goprodl download --auth cookies.json --date-range 2024-07-01,2024-07-31 --media-type Videos

  # Use a stored cookie set and a bigger page size
  goprodl download --account personal --per-page 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDownload(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&authFile, "auth", "", "path to the authentication cookies JSON file")
	downloadCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a stored cookie set instead of --auth")
	downloadCmd.Flags().StringVar(&dateRange, "date-range", "", "date range to search for media, YYYY-MM-DD,YYYY-MM-DD")
	downloadCmd.Flags().StringVar(&mediaType, "media-type", "all", "type of media to search for: Videos, Photos or all")
	downloadCmd.Flags().IntVar(&chunkSize, "chunk-size", 8192, "bytes to download in each chunk")
	downloadCmd.Flags().IntVar(&perPage, "per-page", 30, "number of items to fetch per page")
	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for archives (default: downloads)")
	downloadCmd.Flags().StringVar(&storePath, "store", "", "path of the dedup store file (default: gopro_media_db.json)")
}

func runDownload(cmd *cobra.Command, args []string) {
	// Validate the date range before touching the network
	if dateRange != "" {
		if _, _, err := gopro.ParseDateRange(dateRange); err != nil {
			ui.PrintError("Invalid date range", err.Error())
			os.Exit(1)
		}
	}

	// Build flags map from command line
	flags := make(map[string]interface{})
	if chunkSize != 8192 {
		flags["chunk-size"] = chunkSize
	}
	if perPage != 30 {
		flags["per-page"] = perPage
	}
	if mediaType != "all" {
		flags["media-type"] = mediaType
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if storePath != "" {
		flags["store"] = storePath
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintWarning("Logging setup failed, using defaults", err.Error())
	}
	logger.GetLogger().WithField("version", version).Info("GoPro cloud downloader starting")
	log := logger.GetLogger()

	// Resolve cookies: explicit file first, then a stored cookie set
	cookies, err := resolveCookies(log)
	if err != nil {
		ui.PrintError("No GoPro credentials found", err.Error())
		fmt.Println("\nExport your plus.gopro.com cookies as JSON and either:")
		fmt.Println("  goprodl download --auth cookies.json")
		fmt.Println("or store them once:")
		fmt.Println("  goprodl auth import <name> --file cookies.json")
		os.Exit(1)
	}

	// Map the media type name onto the vendor's type list
	typeFilter, err := gopro.MediaTypeFilter(cfg.Download.MediaType)
	if err != nil {
		ui.PrintError("Invalid media type", err.Error())
		os.Exit(1)
	}

	// Open the dedup store
	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		ui.PrintError("Failed to open dedup store", err.Error())
		os.Exit(1)
	}
	if st.DoneCount() > 0 {
		ui.PrintInfo("Resuming", fmt.Sprintf("%d items already downloaded", st.DoneCount()))
	}

	// Build the API client; downloads get their own, much longer timeout
	client := gopro.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log)
	client.SetDownloadTimeout(cfg.Download.Timeout)
	client.SetHeader("Cookie", auth.CookieHeader(cookies))
	client.SetHeader("User-Agent", cfg.API.UserAgent)

	opts := gopro.SearchOptions{
		DateRange:  dateRange,
		MediaTypes: typeFilter,
		PerPage:    cfg.API.PerPage,
	}

	ui.PrintHighlight("[STARTING DOWNLOAD RUN]")

	d := downloader.New(cfg, client, st)
	summary, err := d.Run(opts)
	if err != nil {
		log.WithError(err).Error("Download run failed")
		ui.PrintError("DOWNLOAD FAILED", err.Error())
		os.Exit(1)
	}

	if summary.Listed == 0 {
		ui.PrintWarning("No media was found")
		return
	}

	ui.PrintInfo("Listed", fmt.Sprintf("%d", summary.Listed))
	ui.PrintInfo("Downloaded", fmt.Sprintf("%d (%.2f MB)", summary.Downloaded, float64(summary.Bytes)/1024/1024))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", summary.Skipped))
	if summary.Failed > 0 {
		ui.PrintWarning("Failed", fmt.Sprintf("%d (left pending for the next run)", summary.Failed))
	}
	ui.PrintSuccess("[DOWNLOAD RUN COMPLETED]")
}

// resolveCookies picks the cookie source: --auth file, --account, or the
// default stored cookie set, in that order.
func resolveCookies(log logger.Logger) ([]auth.Cookie, error) {
	if authFile != "" {
		cookies, err := auth.LoadCookieFile(authFile)
		if err != nil {
			return nil, err
		}
		log.WithField("path", authFile).Info("Using cookies file")
		return cookies, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			return nil, fmt.Errorf("account %q not found", accountName)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			return nil, err
		}
	}

	log.WithField("account", account.Name).Info("Using stored cookie set")
	ui.PrintInfo("Using account", account.Name)
	return account.Cookies, nil
}

// Make download the default command when no subcommand is specified
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			return cmd.Help()
		}
		return downloadCmd.RunE(downloadCmd, args)
	}
	rootCmd.Flags().AddFlagSet(downloadCmd.Flags())
	rootCmd.Args = cobra.ArbitraryArgs
}

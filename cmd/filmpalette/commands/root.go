package commands

import (
	"fmt"
	"os"

	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/palette"
	"filmpalette-backend/internal/scrapers/letterboxd"
	"filmpalette-backend/internal/service"
	"filmpalette-backend/pkg/restyutil"
	"filmpalette-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string

	config Config
)

var rootCmd = &cobra.Command{
	Use:          "filmpalette",
	Short:        "filmpalette turns a film diary into a calendar of poster colors.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		config, err = loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "filmpalette.json5", "Path of the config file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every outgoing request and its response to this directory.")

	rootCmd.AddCommand(serveCmd, scrapeCmd, calendarCmd)
}

func Execute() {
	ctx := serviceutil.SignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService builds the browser handle and the pipeline around it, the
// returned func closes the browser.
func newService(cfg Config, tel telemetry.API) (*service.Service, func(), error) {
	var dump restyutil.Output
	if dumpHttp != "" {
		dir, err := restyutil.NewDirOutput(dumpHttp)
		if err != nil {
			return nil, nil, err
		}
		dump = dir
	}

	browser, err := letterboxd.NewBrowser(letterboxd.BrowserOptions{
		BaseUrl:           cfg.BaseUrl,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.RequestTimeout(),
		UserAgent:         cfg.UserAgent,
		Dump:              dump,
		Telemetry:         tel,
	})
	if err != nil {
		return nil, nil, err
	}

	resolver := palette.NewResolver(palette.ResolverOptions{
		Transport:   browser.Transport(),
		UserAgent:   cfg.UserAgent,
		Concurrency: cfg.ResolveConcurrent,
		Dump:        dump,
		Telemetry:   tel,
	})

	svc := service.New(service.Options{
		Browser:        browser,
		Resolver:       resolver,
		SettleAttempts: cfg.SettleAttempts,
		SettleInterval: cfg.SettleInterval(),
		RequestTimeout: cfg.RequestTimeout(),
		MaxPages:       cfg.MaxPages,
		AllowedOrigins: cfg.AllowedOrigins,
		Telemetry:      tel,
	})
	return svc, browser.Close, nil
}

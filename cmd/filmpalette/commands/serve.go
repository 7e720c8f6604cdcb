package commands

import (
	"context"

	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scrape, calendar and RPC endpoints over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		otel, err := telemetry.Setup(ctx, "filmpalette", config.Telemetry)
		if err != nil {
			return err
		}
		defer otel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)

		svc, closeBrowser, err := newService(config, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer closeBrowser()

		handler, err := svc.Handler()
		if err != nil {
			return err
		}

		port := config.ListenPort
		if servePort > 0 {
			port = servePort
		}
		return serviceutil.ServeHttp(ctx, port, handler)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on, overrides listen_port.")
}

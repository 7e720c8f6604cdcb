package commands

import (
	"fmt"
	"os"

	"filmpalette-backend/internal/calendar"
	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"

	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar <username> <year>",
	Short: "Render the poster color calendar of a diary in the terminal.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parseArgs(args[0], args[1], diary.ModeDay.String())
		if err != nil {
			return err
		}

		svc, closeBrowser, err := newService(config, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer closeBrowser()

		grid, result, err := svc.Calendar(cmd.Context(), req)
		if err != nil {
			return err
		}

		title := fmt.Sprintf("%s · %d · %d films", req.Username, req.Year, len(result.Entries))
		fmt.Fprint(os.Stdout, calendar.RenderTerminal(grid, title))
		return nil
	},
}

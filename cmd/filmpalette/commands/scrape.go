package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"filmpalette-backend/internal/components/telemetry"
	"filmpalette-backend/internal/diary"
	"filmpalette-backend/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeMode   string
	scrapeOutput string
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func parseArgs(username, year, mode string) (service.Request, error) {
	return service.ParseRequest(url.Values{
		"username": {username},
		"year":     {year},
		"mode":     {mode},
	})
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <username> <year>",
	Short: "Scrape a diary and print the dominant poster color of every entry.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parseArgs(args[0], args[1], scrapeMode)
		if err != nil {
			return err
		}

		svc, closeBrowser, err := newService(config, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer closeBrowser()

		if scrapeOutput == "ics" {
			data, err := svc.ICS(cmd.Context(), req)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		result, err := svc.Scrape(cmd.Context(), req)
		if err != nil {
			return err
		}

		switch scrapeOutput {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(service.Records(result.Entries, req.Mode))
		case "table":
			printEntries(result)
			return nil
		}
		return fmt.Errorf("unknown output %q, expected table, json or ics", scrapeOutput)
	},
}

func printEntries(result service.Result) {
	t := newTable()
	t.SetTitle(fmt.Sprintf("%s / %d", result.Request.Username, result.Request.Year))
	t.AppendHeader(table.Row{"page", "row", "date", "film", "color"})
	for _, e := range result.Entries {
		date := "-"
		if e.ViewingDate != nil {
			date = e.ViewingDate.String()
		}
		color := "-"
		if e.DominantColor != nil {
			color = e.DominantColor.Hex()
		}
		t.AppendRow(table.Row{e.Page, e.Row, date, e.FilmName, color})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d entries, %d pages", len(result.Entries), result.Pages), ""})
	t.Render()

	if len(result.Failures) == 0 {
		return
	}
	ft := newTable()
	ft.SetTitle("skipped")
	ft.AppendHeader(table.Row{"page", "row", "kind", "detail"})
	for _, f := range result.Failures {
		detail := f.Ref
		if f.Err != nil {
			detail = f.Err.Error()
		}
		ft.AppendRow(table.Row{f.Page, f.Row, f.Kind.String(), detail})
	}
	ft.Render()
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeMode, "mode", "m", diary.ModeDay.String(), "Entry mode, \"day\" or \"film\".")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "table", "Output format: table, json or ics.")
}

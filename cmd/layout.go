package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwarden/timegrid/internal/calendar"
	"github.com/cwarden/timegrid/internal/dates"
	"github.com/cwarden/timegrid/internal/layout"
	"github.com/cwarden/timegrid/internal/logging"
	"github.com/cwarden/timegrid/internal/parser"
	"github.com/cwarden/timegrid/internal/recurrence"
)

var (
	layoutDate    string
	layoutView    string
	layoutWidth   float64
	layoutVerbose bool
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the computed layout of a day or week and exit",
	Long: `Lay out the events of the requested days the way the grid views do
and print each event's cluster, column and rectangle.`,
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutDate, "date", "d", "today", "Date to lay out")
	layoutCmd.Flags().StringVar(&layoutView, "view", "day", "Days to lay out: day, 3day, week or workweek")
	layoutCmd.Flags().Float64Var(&layoutWidth, "width", 100, "Column width in layout units")
	layoutCmd.Flags().BoolVarP(&layoutVerbose, "verbose", "v", false, "Also report recurrence rule parts that are ignored")
	rootCmd.AddCommand(layoutCmd)
}

func runLayout(cmd *cobra.Command, args []string) error {
	logger, closer, err := openLogger(true)
	if err != nil {
		return err
	}
	defer closer.Close()
	ctx := logging.ContextWithLogger(cmd.Context(), logger)

	day, err := parser.New().ParseDate(layoutDate)
	if err != nil {
		return err
	}
	view, err := dates.ParseViewMode(layoutView)
	if err != nil {
		return err
	}
	if view == dates.ViewMonth {
		return fmt.Errorf("layout: the month view has no time grid")
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	st, src, err := openSources(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	r := dates.ViewRange(view, day, settings.WeekStart)
	events, err := src.Events(ctx, r.First(), r.End())
	if err != nil && len(events) == 0 {
		return fmt.Errorf("error getting events: %w", err)
	}

	opts := layout.OptionsFrom(settings)
	opts.TrackWidth = layoutWidth
	opts.Logger = logger
	days := layout.LayoutDays(events, r.Days, opts)

	out := cmd.OutOrStdout()
	printLayout(out, days)
	if layoutVerbose {
		printRuleNotes(out, events)
	}
	return nil
}

func printLayout(w io.Writer, days []layout.DayLayout) {
	for _, day := range days {
		fmt.Fprintf(w, "%s\n", day.Date.Format("Monday, January 2, 2006"))
		for _, ev := range day.AllDay {
			fmt.Fprintf(w, "  all day  %s\n", ev.Title)
		}
		if len(day.Events) == 0 {
			if len(day.AllDay) == 0 {
				fmt.Fprintln(w, "  No events.")
			}
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  TIME\tCLUSTER\tCOL\tSPAN\tTOP\tHEIGHT\tLEFT\tWIDTH\tTITLE")
		for _, p := range day.Events {
			var flags []string
			if p.Overflow {
				flags = append(flags, "overflow")
			}
			if p.ClippedTop || p.ClippedBottom {
				flags = append(flags, "clipped")
			}
			title := p.Event.Title
			if len(flags) > 0 {
				title += " (" + strings.Join(flags, ", ") + ")"
			}
			fmt.Fprintf(tw, "  %s-%s\t%d\t%d/%d\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n",
				p.Event.Start.Format("15:04"), p.Event.End.Format("15:04"),
				p.Cluster, p.Column, p.Columns, p.Span,
				p.Top, p.Height, p.Left, p.Width, title)
		}
		tw.Flush()
	}
}

func printRuleNotes(w io.Writer, events []calendar.Event) {
	for _, ev := range events {
		if ev.Recurrence == nil {
			continue
		}
		for _, note := range recurrence.Check(*ev.Recurrence) {
			fmt.Fprintf(w, "%s (%s): %s\n", ev.Title, ev.ID, note)
		}
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/econ-calendar/internal/lookup"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/store"
)

var (
	eventsDate       string
	eventsCurrencies []string
	lookupCountry    string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect stored events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored events for one day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		day := time.Now().UTC()
		if eventsDate != "" {
			d, err := time.Parse(time.DateOnly, eventsDate)
			if err != nil {
				return eris.Wrap(err, "--date must be YYYY-MM-DD")
			}
			day = d
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		currencies := make([]string, 0, len(eventsCurrencies))
		for _, c := range eventsCurrencies {
			currencies = append(currencies, strings.ToUpper(strings.TrimSpace(c)))
		}
		events, err := st.ListEvents(ctx, store.EventFilter{Date: day, Currencies: currencies})
		if err != nil {
			return eris.Wrap(err, "events list")
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No events found.")
			return nil
		}
		formatEvents(os.Stdout, events)
		return nil
	},
}

var eventsGetCmd = &cobra.Command{
	Use:   "get <event name>",
	Short: "Look up one event, refetching the calendar when the stored row is stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Lookup.Get(ctx, lookup.Request{EventName: args[0], Country: lookupCountry})
		if err != nil {
			return eris.Wrap(err, "lookup")
		}
		return writeJSON(os.Stdout, res)
	},
}

// formatEvents writes a tabular list of events to w.
func formatEvents(out io.Writer, events []model.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tCUR\tIMPACT\tEVENT\tACTUAL\tFORECAST\tPREVIOUS\tRESULT")
	for _, e := range events {
		at := "all day"
		if e.TimeUTC != nil {
			at = e.TimeUTC.Format("15:04")
		}
		result := string(e.ActualResultType)
		if result == "" {
			result = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			at, e.Currency, e.Impact, e.EventName,
			dash(e.Actual()), dash(e.Forecast()), dash(e.Previous()), result,
		)
	}
	_ = w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	eventsListCmd.Flags().StringVar(&eventsDate, "date", "", "day to list, YYYY-MM-DD (default today UTC)")
	eventsListCmd.Flags().StringSliceVar(&eventsCurrencies, "currency", nil, "currencies to include (repeatable)")
	eventsGetCmd.Flags().StringVar(&lookupCountry, "country", "", "country name, flag code or currency (required)")
	_ = eventsGetCmd.MarkFlagRequired("country")
	eventsCmd.AddCommand(eventsListCmd, eventsGetCmd)
	rootCmd.AddCommand(eventsCmd)
}

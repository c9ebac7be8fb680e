package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var parseShowEvents bool

var parseCmd = &cobra.Command{
	Use:   "parse <file.html>",
	Short: "Parse a saved calendar page into the store",
	Long:  "Detects the calendar layout of a saved page, normalizes its rows and upserts them. Use - to read from stdin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		html, err := readInput(args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "parse")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ParseHTML(ctx, html)
		if err != nil {
			return eris.Wrap(err, "parse")
		}
		if !parseShowEvents {
			res.Events = nil
		}
		return writeJSON(os.Stdout, res)
	},
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", eris.Wrapf(err, "read %s", path)
	}
	return string(data), nil
}

func init() {
	parseCmd.Flags().BoolVar(&parseShowEvents, "events", false, "include the stored events in the output")
	rootCmd.AddCommand(parseCmd)
}

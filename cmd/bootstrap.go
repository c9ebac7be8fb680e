package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Fetch this week's calendar and store every event",
	Long:  "Fetches the weekly calendar from the first source that answers and upserts all rows. Intended for an external timer.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "bootstrap")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Bootstrap(ctx)
		if err != nil {
			return eris.Wrap(err, "bootstrap")
		}

		zap.L().Info("bootstrap complete",
			zap.String("run_id", res.RunID),
			zap.String("source", res.Source),
			zap.Int("stored", res.EventsStored),
		)

		res.Events = nil
		return writeJSON(os.Stdout, res)
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

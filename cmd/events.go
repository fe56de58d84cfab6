package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mkuran/gatewarden/internal/policy"
)

// eventsCmd retrieves recent decision events from a running harness.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Retrieve and display recent decision events",
	Long: `Events lists the most recent authorization decisions recorded by a
	running harness. The harness must be configured with the memory audit
	recorder; file and log recorders are write-only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching decision events...")
		events, correlation, err := cli.Events(cmd.Context(), limit)
		if err != nil {
			return logError(err, correlation, "failed to retrieve decision events")
		}

		log.Info().Msgf("Retrieved %d decision events", len(events))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Effect", "Principal", "Resource", "Key ID", "Failure",
		})

		for _, e := range events {
			marker := greenCheck
			if e.Effect != policy.EffectAllow {
				marker = redCross
			}

			principal := e.Principal
			if principal == "" {
				principal = faint("(none)")
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				marker + " " + e.Effect,
				truncate(principal, 35),
				truncate(e.Resource, 45),
				e.KeyID,
				e.FailureKind,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().IntP("limit", "n", 25, "Number of decision events to retrieve")
}

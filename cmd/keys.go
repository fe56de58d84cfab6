package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkuran/gatewarden/internal/trust"
)

// keysCmd lists the signing keys the gate currently trusts.
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the trust anchor's current signing keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.RemoteAddr != "" || viper.GetString(AddrKey) != "" {
			return keysRemote(cmd)
		}
		return keysLocal(cmd)
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func keysLocal(cmd *cobra.Command) error {
	settings, err := f.LoadSettings()
	if err != nil {
		return err
	}

	keySetURL := settings.ResolvedKeySetURL()
	if settings.DiscoverKeySet {
		if keySetURL, err = trust.DiscoverKeySetURL(cmd.Context(), settings.Issuer); err != nil {
			return fmt.Errorf("discovering key set URL: %w", err)
		}
	}

	log.Debug().Msgf("Fetching key set from %s...", keySetURL)
	fetcher := trust.NewFetcher(keySetURL, settings.FetchTimeout, nil)
	set, err := fetcher.Fetch(log.Logger.WithContext(cmd.Context()))
	if err != nil {
		return fmt.Errorf("fetching key set: %w", err)
	}

	printKeys(trust.Summarize(set))
	return nil
}

func keysRemote(cmd *cobra.Command) error {
	cli, err := f.GetClient()
	if err != nil {
		return err
	}

	log.Debug().Msg("Retrieving key set from harness...")
	keys, correlation, err := cli.Keys(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to retrieve key set")
	}

	printKeys(keys)
	return nil
}

func printKeys(keys []trust.KeySummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Key ID", "Algorithm", "Type", "Use"})

	for _, key := range keys {
		use := key.Use
		if use == "" {
			use = faint("(unspecified)")
		}
		t.AppendRow(table.Row{bold(key.KeyID), key.Algorithm, key.Type, use})
	}

	applyTableFormat(t)
	t.Render()
}

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the gate configuration",
	Long: `Loads the configuration from the --config file and the GATEWARDEN_*
	environment and reports whether the resulting settings are usable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := f.LoadSettings()
		if err != nil {
			log.Error().Err(err).Msg("Configuration is invalid.")
			return err
		}
		log.Info().
			Str("issuer", settings.Issuer).
			Str("key_set_url", settings.ResolvedKeySetURL()).
			Str("algorithm", settings.Algorithm).
			Msg("Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

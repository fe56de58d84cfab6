package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkuran/gatewarden/internal/buildinfo"
	"github.com/mkuran/gatewarden/internal/logging"
)

// global flags
var (
	userConfig string
)

const (
	AddrKey = "addr"
)

var rootCmd = &cobra.Command{
	Use:   "gatewarden",
	Short: fmt.Sprintf("Gatewarden API Gateway authorizer (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `Gatewarden guards AWS API Gateway stages with bearer-token authorization.
	It verifies JWTs against the signing keys published by a trusted OIDC issuer
	and answers every invocation with an IAM Allow/Deny policy decision.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initUserConfig()
		logging.Init(nil)
		if viper.GetBool(logging.NoColorKey) {
			color.NoColor = true
		}
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	// The Lambda runtime invokes the bundled binary without arguments.
	if len(os.Args) == 1 && os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		rootCmd.SetArgs([]string{"lambda"})
	}
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.gatewarden.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(logging.LevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(logging.FormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(logging.NoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().StringVar(&f.RemoteAddr, "server", "", "Address of a remote Gatewarden harness")
	_ = viper.BindPFlag(AddrKey, rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringVarP(&f.ConfigPath, "config", "f", "",
		"Gate configuration file (defaults to GATEWARDEN_* environment variables only)")

	viper.SetEnvPrefix("GATEWARDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initUserConfig() (string, error) {
	// reads in user config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/gatewarden")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".gatewarden")
	}

	// If a user config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}

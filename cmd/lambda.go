package cmd

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkuran/gatewarden/internal/core"
	"github.com/mkuran/gatewarden/internal/logging"
)

// lambdaCmd runs the gate as an AWS Lambda REQUEST authorizer, the
// production deployment shape. All settings come from GATEWARDEN_*
// environment variables; there is no config file in the function bundle.
var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run the gate as an AWS Lambda authorizer",
	RunE: func(cmd *cobra.Command, args []string) error {
		// CloudWatch wants one JSON document per line, so json becomes
		// the default format unless the operator explicitly asked for
		// something else.
		if !rootCmd.PersistentFlags().Changed("log-format") && os.Getenv("GATEWARDEN_LOG_FORMAT") == "" {
			logging.Init(&logging.Options{
				Level:   viper.GetString(logging.LevelKey),
				Format:  "json",
				NoColor: true,
			})
		}

		built, err := f.BuildGate(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := built.Close(); err != nil {
				log.Warn().Err(err).Msg("closing audit recorder")
			}
		}()

		log.Info().
			Str("issuer", built.Settings.Issuer).
			Str("key_set_url", built.Fetcher.URL()).
			Msg("starting authorizer handler")

		handler := func(
			ctx context.Context,
			request events.APIGatewayCustomAuthorizerRequestTypeRequest,
		) (events.APIGatewayCustomAuthorizerResponse, error) {
			if lc, ok := lambdacontext.FromContext(ctx); ok {
				ctx = core.WithCorrelationID(ctx, lc.AwsRequestID)
			}
			ctx = log.Logger.WithContext(ctx)
			return built.Gate.Authorize(ctx, request), nil
		}

		lambda.StartWithOptions(handler, lambda.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

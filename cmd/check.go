package cmd

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkuran/gatewarden/internal/policy"
)

var (
	checkResource string
)

var checkCmd = &cobra.Command{
	Use:   "check <token>",
	Short: "Evaluate one bearer token against the configured trust anchor",
	Long: `Check renders the decision the gate would return for the given token,
	exactly as one gateway invocation would see it. The command exits
	non-zero when the decision is Deny.

With --server the token is evaluated by a running harness; otherwise the
gate is assembled locally from the configuration.`,
	Example: `  # evaluate a token against the local configuration
  gatewarden check $TOKEN -f gatewarden.yaml

  # evaluate against a running harness, for a specific method ARN
  gatewarden check $TOKEN --server http://localhost:8080 \
    --resource arn:aws:execute-api:eu-central-1:123456789012:abcdef/live/GET/orders`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request := events.APIGatewayCustomAuthorizerRequestTypeRequest{
			MethodArn: checkResource,
			Headers: map[string]string{
				"Authorization": "Bearer " + args[0],
			},
		}

		remote := f.RemoteAddr != "" || viper.GetString(AddrKey) != ""

		var decision events.APIGatewayCustomAuthorizerResponse
		if remote {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}

			log.Debug().Msg("Sending authorizer request to harness...")
			resp, correlation, err := cli.Authorize(cmd.Context(), request)
			if err != nil {
				return logError(err, correlation, "failed to evaluate token")
			}
			decision = *resp
		} else {
			built, err := f.BuildGate(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = built.Close()
			}()

			ctx := log.Logger.WithContext(cmd.Context())
			decision = built.Gate.Authorize(ctx, request)
		}

		return printDecision(&decision)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkResource, "resource", "r", "",
		"Method ARN to render the decision for (defaults to a wildcard resource)")
}

func printDecision(decision *events.APIGatewayCustomAuthorizerResponse) error {
	var effect, resource string
	if len(decision.PolicyDocument.Statement) > 0 {
		stmt := decision.PolicyDocument.Statement[0]
		effect = stmt.Effect
		if len(stmt.Resource) > 0 {
			resource = stmt.Resource[0]
		}
	}

	marker := greenCheck
	if effect != policy.EffectAllow {
		marker = redCross
	}

	fmt.Println(bold("\n── Decision ──"))
	fmt.Printf("  %s:    %s %s\n", faint("Effect"), marker, effect)
	fmt.Printf("  %s: %s\n", faint("Principal"), decision.PrincipalID)
	fmt.Printf("  %s:  %s\n", faint("Resource"), resource)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Context Key", "Value"})
	for _, key := range []string{policy.ContextKeyCode, policy.ContextKeyMessage, policy.ContextKeyError} {
		value, ok := decision.Context[key]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{key, truncate(fmt.Sprintf("%v", value), 80)})
	}
	applyTableFormat(t)
	t.Render()

	if effect != policy.EffectAllow {
		return fmt.Errorf("token denied")
	}
	return nil
}

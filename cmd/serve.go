package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mkuran/gatewarden/internal/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local authorizer harness",
	Long: `Serve exposes the gate over plain HTTP so authorizer behavior can be
	exercised without deploying the Lambda. POST the gateway's authorizer
	request JSON to /v1/authorize and the harness responds with the exact
	decision document the Lambda would return.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		built, err := f.BuildGate(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := built.Close(); err != nil {
				log.Warn().Err(err).Msg("closing audit recorder")
			}
		}()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = built.Settings.Listen
		}

		log.Info().
			Str("issuer", built.Settings.Issuer).
			Str("key_set_url", built.Fetcher.URL()).
			Msg("Gate assembled")

		srv := api.NewServer(built.Gate, built.Fetcher, built.Memory)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting harness on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (defaults to the configured listen address)")
}

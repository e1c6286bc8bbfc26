package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/adapter"
	"github.com/kapu/nyaay-triage-go/internal/app"
	"github.com/kapu/nyaay-triage-go/internal/config"
	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	var audioPath string

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run the full triage pipeline and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := domain.NewTextQuery(strings.Join(args, " "))
			if audioPath != "" {
				data, err := os.ReadFile(audioPath)
				if err != nil {
					return fmt.Errorf("read audio: %w", err)
				}
				query.Audio = &domain.Audio{Data: data, Filename: filepath.Base(audioPath)}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			buildCtx, cancel := context.WithTimeout(ctx, constants.CatalogConfig.LoadTimeout)
			container, err := app.Build(buildCtx, cfg, logger)
			cancel()
			if err != nil {
				return err
			}
			defer container.Close()

			runCtx, runCancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
			defer runCancel()

			result, err := container.Pipeline.Triage(runCtx, query)
			if err != nil {
				return err
			}
			return writeText(cmd.OutOrStdout(), result, func(f *adapter.ResponseFormatter) (string, error) {
				return f.FormatTriageResult(result)
			})
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "audio file to transcribe instead of text")
	return cmd
}

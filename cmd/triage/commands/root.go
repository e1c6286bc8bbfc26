// Package commands implements the triage command line tool.
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kapu/nyaay-triage-go/internal/adapter"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel     string
	pretty       bool
	outputFormat string
	logger       *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "triage",
		Short:        "Legal query triage from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "json" && outputFormat != "text" {
				return fmt.Errorf("unknown output format %q", outputFormat)
			}
			var err error
			// stdout carries JSON output only
			logger, err = util.NewLogger(logLevel, "console", "stderr")
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	root.PersistentFlags().StringVarP(&outputFormat, "format", "o", "json", "output format (json, text)")

	root.AddCommand(queryCmd(), classifyCmd(), rankCmd())
	return root.Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// writeText renders with the terminal formatter when --format=text is set,
// and falls back to JSON otherwise.
func writeText(w io.Writer, v any, render func(*adapter.ResponseFormatter) (string, error)) error {
	if outputFormat != "text" {
		return writeJSON(w, v)
	}
	out, err := render(adapter.NewResponseFormatter(0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdbook-jinja/internal/book"
	"github.com/dgallion1/mdbook-jinja/internal/config"
	"github.com/dgallion1/mdbook-jinja/internal/logging"
	"github.com/dgallion1/mdbook-jinja/internal/pipeline"
)

// app carries what every command shares once flags are parsed.
type app struct {
	log      *slog.Logger
	settings config.Settings
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "mdbook-jinja",
		Short: "Render mdBook chapters as Jinja templates",
		Long: `Render mdBook chapters as Jinja templates.

Run without a subcommand, mdbook-jinja acts as an mdBook preprocessor: it
reads [context, book] JSON on stdin and writes the rendered book to stdout.
Add it to book.toml with:

  [preprocessor.jinja]
  variables = { name = "World" }`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cmd.ErrOrStderr(), settings.LogLevel, settings.LogFormat)
			if err != nil {
				return err
			}
			a.settings = settings
			a.log = log
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.log)
		},
	}

	cmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", "text", "log format: text, json or logfmt")

	cmd.AddCommand(
		newSupportsCommand(a),
		newRenderCommand(a),
		newServeCommand(a),
	)
	return cmd
}

// runPreprocess is the mdBook protocol: [context, book] in, book out.
func runPreprocess(ctx context.Context, in io.Reader, out io.Writer, log *slog.Logger) error {
	pctx, b, err := book.ParseInput(in)
	if err != nil {
		return err
	}
	if !pctx.VersionMatches() {
		log.Warn("The jinja preprocessor was built against a different mdbook version",
			"supported", book.SupportedVersion,
			"called_with", pctx.MDBookVersion,
		)
	}

	b, err = pipeline.New(log).Run(ctx, pctx, b)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(out).Encode(b); err != nil {
		return fmt.Errorf("write book: %w", err)
	}
	return nil
}

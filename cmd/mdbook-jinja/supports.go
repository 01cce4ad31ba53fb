package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/mdbook-jinja/internal/pipeline"
)

// newSupportsCommand answers mdBook's renderer support check. Exit status 0 means
// supported.
func newSupportsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "supports <renderer>",
		Short: "Report whether a renderer is supported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pipeline.New(a.log).Supports(args[0]) {
				return errUnsupported(args[0])
			}
			return nil
		},
	}
}

type errUnsupported string

func (e errUnsupported) Error() string {
	return "renderer not supported: " + string(e)
}

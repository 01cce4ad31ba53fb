package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdbook-jinja/internal/api"
	"github.com/dgallion1/mdbook-jinja/internal/pipeline"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the preprocessor over HTTP",
		Long: `Serve the preprocessor over HTTP.

POST /api/preprocess takes the same [context, book] JSON mdBook writes on
stdin and returns the rendered book; its root must lie under --book-root.
POST /api/render renders a single template against --book-root. Both need
"Authorization: Bearer <key>". Templates served this way cannot use the
absolute anchor or reach files outside the book root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8090", "listen address")
	cmd.Flags().String("api-key", "", "bearer token required on /api routes")
	cmd.Flags().Int64("max-body-bytes", 52428800, "maximum request body size")
	cmd.Flags().String("book-root", ".", "directory every served book must lie under")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	if err := a.settings.ValidateServe(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(pipeline.New(a.log).Confined(), a.log, a.settings)
	httpServer := &http.Server{
		Addr:         a.settings.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		a.log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	a.log.Info("starting mdbook-jinja", "addr", a.settings.Addr, "book_root", a.settings.BookRoot)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	itemsrender "github.com/bnema/offline-session-cli/internal/adapters/render/items"
	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/spf13/cobra"
)

type listOutput struct {
	Collection string          `json:"collection"`
	Source     string          `json:"source"`
	Offline    bool            `json:"offline"`
	Failure    string          `json:"failure,omitempty"`
	Records    []domain.Record `json:"records"`
}

type recordOutput struct {
	Source  string        `json:"source"`
	Offline bool          `json:"offline"`
	Record  domain.Record `json:"record"`
}

func newItemsCmd(app *app) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Browse and edit records, falling back to the local cache when offline",
	}

	cmd.PersistentFlags().StringVar(&collection, "collection", string(domain.DefaultCollection), "Collection name")
	key := func() domain.CollectionKey { return domain.CollectionKey(collection) }

	cmd.AddCommand(
		newItemsListCmd(app, key),
		newItemsGetCmd(app, key),
		newItemsCreateCmd(app, key),
		newItemsUpdateCmd(app, key),
		newItemsDeleteCmd(app, key),
		newItemsWatchCmd(app, key),
	)

	return cmd
}

func newItemsListCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				result, err := app.records.FetchList(cmd.Context(), collection())
				if err != nil {
					return err
				}
				return writeJSON(cmd, toListOutput(collection(), result))
			}

			key := collection()
			result, err := runListSpinner(cmd.Context(), cmd.ErrOrStderr(), key, app.sessions.State, func(ctx context.Context) (application.FetchResult, error) {
				return app.records.FetchList(ctx, key)
			})
			if err != nil {
				return err
			}

			return printList(cmd, app, collection(), result)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func newItemsGetCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.records.GetRecord(cmd.Context(), collection(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, recordOutput{
					Source:  string(result.Source),
					Offline: result.Source == application.SourceCache,
					Record:  result.Record,
				})
			}

			rendered, err := itemsrender.RenderRecord(collection(), result, itemsrender.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render record: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

type recordFlags struct {
	title       string
	description string
	imageURL    string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Record title")
	cmd.Flags().StringVar(&f.description, "description", "", "Record description")
	cmd.Flags().StringVar(&f.imageURL, "image-url", "", "Record image URL")
}

func (f *recordFlags) record(id string) domain.Record {
	return domain.Record{
		ID:          id,
		Title:       f.title,
		Description: f.description,
		ImageURL:    f.imageURL,
	}
}

func newItemsCreateCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record on the remote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := app.records.CreateRecord(cmd.Context(), collection(), flags.record(""))
			if err != nil {
				return fmt.Errorf("create record: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s/%s\n", collection(), created.ID)
			return err
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newItemsUpdateCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	var flags recordFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a record on the remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updated, err := app.records.UpdateRecord(cmd.Context(), collection(), flags.record(args[0]))
			if err != nil {
				return fmt.Errorf("update record: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%s\n", collection(), updated.ID)
			return err
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newItemsDeleteCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a record on the remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.records.DeleteRecord(cmd.Context(), collection(), args[0]); err != nil {
				return fmt.Errorf("delete record: %w", err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", collection(), args[0])
			return err
		},
	}
}

func newItemsWatchCmd(app *app, collection func() domain.CollectionKey) *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-fetch records on an interval, keeping the cache warm",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				shutdown, err := serveMetrics(ctx, app, metricsAddr)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for round := 1; ; round++ {
				result, err := app.records.FetchList(ctx, collection())
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				if err := printList(cmd, app, collection(), result); err != nil {
					return err
				}

				if count > 0 && round >= count {
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between fetches")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many fetches (0 runs until interrupted)")

	return cmd
}

func serveMetrics(ctx context.Context, app *app, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	app.logger.Info().Str("addr", listener.Addr().String()).Msg("serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}

func printList(cmd *cobra.Command, app *app, collection domain.CollectionKey, result application.FetchResult) error {
	rendered, err := itemsrender.RenderList(collection, result, itemsrender.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render records: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func toListOutput(collection domain.CollectionKey, result application.FetchResult) listOutput {
	out := listOutput{
		Collection: string(collection),
		Source:     string(result.Source),
		Offline:    result.Source == application.SourceCache,
		Records:    result.Records,
	}
	if result.Failure != nil {
		out.Failure = result.Failure.Error()
	}

	return out
}

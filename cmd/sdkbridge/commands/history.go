package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/config"
	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		status     string
		logicalID  string
		requestID  string
		limit      int
		showEvents bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled invocations",
		Long: `Show invocations recorded in the journal configured by journal.path,
newest first. With --events, show the telemetry events recorded instead.`,
		Example: `  sdkbridge history --status FAILED
  sdkbridge history --logical-id MyBucketPolicy --limit 5
  sdkbridge history --events --request-id 7f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, config.LoadOptions{ConfigFile: configPath})
			if err != nil {
				return err
			}
			if cfg.Journal.Path == "" {
				return fmt.Errorf("no journal configured (set journal.path or SDKBRIDGE_JOURNAL_PATH)")
			}

			journal, err := stores.Open(ctx, stores.Config{Path: cfg.Journal.Path})
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer journal.Close()

			w := cmd.OutOrStdout()
			if showEvents {
				return printEvents(ctx, w, journal, requestID, limit, jsonOutput)
			}
			return printInvocations(ctx, w, journal, stores.InvocationFilter{
				RequestID:         requestID,
				LogicalResourceID: logicalID,
				Status:            engine.Status(status),
				Limit:             limit,
			}, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (SUCCESS, FAILED)")
	cmd.Flags().StringVar(&logicalID, "logical-id", "", "filter by logical resource id")
	cmd.Flags().StringVar(&requestID, "request-id", "", "filter by request id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	cmd.Flags().BoolVar(&showEvents, "events", false, "show recorded telemetry events")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func printInvocations(ctx context.Context, w io.Writer, journal stores.Store, filter stores.InvocationFilter, jsonOutput bool) error {
	entries, err := journal.ListInvocations(ctx, filter)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREQUEST\tTYPE\tRESOURCE\tACTION\tSTATUS\tREASON")
	for _, e := range entries {
		action := e.Action
		if e.Package != "" {
			action = e.Package + " " + e.Action
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.RequestID, e.RequestType,
			e.LogicalResourceID, action, e.Status, e.Reason)
	}
	return tw.Flush()
}

func printEvents(ctx context.Context, w io.Writer, journal stores.Store, requestID string, limit int, jsonOutput bool) error {
	var filter *string
	if requestID != "" {
		filter = &requestID
	}

	events, err := journal.ListEvents(ctx, filter, nil, limit, 0)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(w, events)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tLEVEL\tMESSAGE")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Type, e.Level, e.Message)
	}
	return tw.Flush()
}

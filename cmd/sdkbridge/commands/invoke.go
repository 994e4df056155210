package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/handler"
)

func newInvokeCommand(version string) *cobra.Command {
	var (
		eventPath string
		respond   bool
	)

	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Process a single custom-resource event",
		Long: `Process one custom-resource event read from a file or stdin.

By default the acknowledgment is printed as JSON instead of being uploaded.
With --respond it is sent to the event's ResponseURL.`,
		Example: `  # Process an event file and print the acknowledgment
  sdkbridge invoke --event create.json

  # Read the event from stdin
  cat create.json | sdkbridge invoke --event -

  # Deliver the acknowledgment to the ResponseURL
  sdkbridge invoke --event create.json --respond`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var responder engine.Responder = handler.NewWriterResponder(cmd.OutOrStdout())
			if respond {
				responder = handler.CFNResponder{}
			}
			return runInvoke(cmd.Context(), version, eventPath, cmd.InOrStdin(), responder)
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "event file path, or - for stdin")
	cmd.Flags().BoolVar(&respond, "respond", false, "send the acknowledgment to the event ResponseURL")

	return cmd
}

func runInvoke(ctx context.Context, version, eventPath string, stdin io.Reader, responder engine.Responder) error {
	event, err := readEvent(eventPath, stdin)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, false, version)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	h, err := a.handler(responder)
	if err != nil {
		return err
	}
	return h.Handle(ctx, *event)
}

func readEvent(path string, stdin io.Reader) (*cfn.Event, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}

	var event cfn.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return &event, nil
}

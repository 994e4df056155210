package commands

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/handler"
)

func newLambdaCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as a Lambda custom-resource function",
		Long: `Run the Lambda runtime loop. Each custom-resource event is processed and
acknowledged to its pre-signed ResponseURL.

This command runs automatically when the binary starts inside a Lambda
runtime without arguments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd.Context(), version)
		},
	}
}

func runLambda(ctx context.Context, version string) error {
	a, err := newApp(ctx, true, version)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	h, err := a.handler(handler.CFNResponder{})
	if err != nil {
		return err
	}

	a.tel.Logger.Info("Starting Lambda runtime loop")
	lambda.StartWithOptions(func(ctx context.Context, event cfn.Event) error {
		defer func() {
			if err := a.tel.Flush(ctx); err != nil {
				a.tel.Logger.WithError(err).Warn("Failed to flush telemetry")
			}
		}()
		return h.Handle(ctx, event)
	}, lambda.WithContext(ctx))
	return nil
}

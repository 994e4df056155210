package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/normalize"
)

func newFlattenCommand() *cobra.Command {
	var (
		inputPath   string
		outputPaths []string
		unflatten   bool
	)

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Flatten a JSON response into dotted keys",
		Long: `Flatten a JSON document the way SDK responses are flattened before being
returned as resource attributes, optionally keeping only keys under the
given output paths. With --unflatten the input is a flat map to re-nest.`,
		Example: `  echo '{"Buckets":[{"Name":"a"}]}' | sdkbridge flatten
  sdkbridge flatten --input resp.json --output-path Buckets.0
  sdkbridge flatten --unflatten --input flat.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(inputPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if unflatten {
				var flat normalize.FlatResponse
				if err := json.Unmarshal(data, &flat); err != nil {
					return fmt.Errorf("failed to parse flat input: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), normalize.Unflatten(flat))
			}

			var tree interface{}
			if err := json.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("failed to parse input: %w", err)
			}
			flat := normalize.Filter(normalize.Flatten(tree), outputPaths)
			return writeJSON(cmd.OutOrStdout(), flat)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "input file path, or - for stdin")
	cmd.Flags().StringSliceVarP(&outputPaths, "output-path", "o", nil, "keep only keys starting with this prefix (repeatable)")
	cmd.Flags().BoolVar(&unflatten, "unflatten", false, "re-nest a flat map")

	return cmd
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

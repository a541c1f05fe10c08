package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var compareModels []string

var compareCmd = &cobra.Command{
	Use:   "compare <term-id> <column-id>",
	Short: "Generate the same cell with several models side by side",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		runs, err := svc.CompareModels(ctx, args[0], args[1], compareModels)
		if err != nil {
			return err
		}

		for _, run := range runs {
			fmt.Printf("model %s:", run.ModelID)
			result := run.Result
			if result == nil {
				fmt.Println(" no result")
				continue
			}
			if result.Err != nil {
				fmt.Printf(" failed: %v\n", result.Err)
				continue
			}
			version := result.Version
			fmt.Printf(" state=%s", result.State)
			if version != nil {
				fmt.Printf(" version=%s", version.ID)
				if version.QualityScore != nil {
					fmt.Printf(" score=%.1f", *version.QualityScore)
				}
			}
			fmt.Printf(" cost=$%.6f cache_hits=%d\n", result.CostUSD, result.CacheHits)
		}

		fmt.Printf("\nselect a winner with: glossforge versions select %s %s <version-id>\n",
			args[0], args[1])
		return nil
	},
}

func init() {
	compareCmd.Flags().StringSliceVarP(&compareModels, "models", "m", nil, "model ids to compare (repeatable)")
	compareCmd.MarkFlagRequired("models")
	rootCmd.AddCommand(compareCmd)
}

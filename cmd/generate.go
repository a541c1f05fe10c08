package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	generateModel string
	generateForce bool
	generateShow  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <term-id> <column-id>",
	Short: "Generate one content cell through the full quality pipeline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		version, err := svc.GenerateColumn(ctx, args[0], args[1], generateModel, generateForce)
		if err != nil {
			return err
		}

		fmt.Printf("version:  %s\n", version.ID)
		fmt.Printf("model:    %s\n", version.ModelID)
		fmt.Printf("phase:    %s\n", version.Phase)
		if version.QualityScore != nil {
			fmt.Printf("score:    %.1f/10\n", *version.QualityScore)
		} else if version.Feedback != nil && version.Feedback.Inconclusive {
			fmt.Println("score:    inconclusive (flagged for review)")
		}
		fmt.Printf("tokens:   %d in / %d out\n", version.TokensIn, version.TokensOut)
		fmt.Printf("cost:     $%.6f\n", version.CostUSD)

		if generateShow {
			fmt.Println()
			fmt.Println(version.Content)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateModel, "model", "m", "", "model id (defaults to configured model)")
	generateCmd.Flags().BoolVarP(&generateForce, "force", "f", false, "bypass the cache and regenerate")
	generateCmd.Flags().BoolVar(&generateShow, "show", false, "print the generated content")
	rootCmd.AddCommand(generateCmd)
}

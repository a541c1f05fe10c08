package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the content-addressed artifact cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>",
	Short: "Drop cached artifacts matching a glob over column/term/model/stage",
	Long: `Removes cached artifacts whose logical key matches the glob pattern.
Keys have the shape "column/term/model/stage", so for example:

  glossforge cache invalidate 'introduction_definition_overview/*/*/*'
  glossforge cache invalidate '*/gradient-descent/*/generate'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		removed, err := svc.InvalidateCache(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("invalidated %d cached artifacts\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}

package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect, select, and rate generated content versions",
}

var versionsListCmd = &cobra.Command{
	Use:   "list <term-id> <column-id>",
	Short: "List every version generated for a cell",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		list, err := svc.ListVersions(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("no versions")
			return nil
		}

		writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ID\tMODEL\tPHASE\tSCORE\tCOST\tCREATED")
		for _, version := range list {
			score := "-"
			if version.QualityScore != nil {
				score = fmt.Sprintf("%.1f", *version.QualityScore)
			} else if version.Feedback != nil && version.Feedback.Inconclusive {
				score = "inconclusive"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t$%.6f\t%s\n",
				version.ID, version.ModelID, version.Phase, score,
				version.CostUSD, version.CreatedAt.Format("2006-01-02 15:04"))
		}
		return writer.Flush()
	},
}

var versionsSelectCmd = &cobra.Command{
	Use:   "select <term-id> <column-id> <version-id>",
	Short: "Mark one version as the cell's published content",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.SelectVersion(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Printf("selected %s for %s/%s\n", args[2], args[0], args[1])
		return nil
	},
}

var versionsRateCmd = &cobra.Command{
	Use:   "rate <term-id> <column-id> <version-id> <stars>",
	Short: "Record a 1-5 star human rating for a version",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stars, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("stars must be an integer 1-5: %w", err)
		}

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.RateVersion(ctx, args[0], args[1], args[2], stars); err != nil {
			return err
		}
		fmt.Printf("rated %s: %d stars\n", args[2], stars)
		return nil
	},
}

func init() {
	versionsCmd.AddCommand(versionsListCmd)
	versionsCmd.AddCommand(versionsSelectCmd)
	versionsCmd.AddCommand(versionsRateCmd)
	rootCmd.AddCommand(versionsCmd)
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adalundhe/glossforge/core/prompts"
	"github.com/adalundhe/glossforge/core/registry"
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Inspect the column schema",
}

var columnsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every column in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := registry.LoadFile(cfg.Pipeline.RegistryFile)
		if err != nil {
			return err
		}

		writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "ORDER\tID\tSECTION\tCATEGORY\tTITLE")
		for _, column := range reg.Columns() {
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\t%s\n",
				column.DisplayOrder, column.ID, column.SectionID, column.Category, column.Title)
		}
		return writer.Flush()
	},
}

var columnsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every column has a complete prompt triplet",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reg, err := registry.LoadFile(cfg.Pipeline.RegistryFile)
		if err != nil {
			return err
		}

		store, err := prompts.DefaultStore(reg, cfg.Pipeline.PromptDir)
		if err != nil {
			return err
		}
		if err := store.Validate(reg); err != nil {
			return err
		}

		fmt.Printf("ok: %d columns, each with a generative, evaluative, and improvement prompt\n", reg.Len())
		return nil
	},
}

func init() {
	columnsCmd.AddCommand(columnsListCmd)
	columnsCmd.AddCommand(columnsValidateCmd)
	rootCmd.AddCommand(columnsCmd)
}

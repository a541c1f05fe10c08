package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adalundhe/glossforge/core/terms"
)

var termContext string

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage glossary terms",
}

var termsAddCmd = &cobra.Command{
	Use:   "add <term-id> <name>",
	Short: "Register or update a glossary term",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		term := terms.Term{ID: args[0], Name: args[1], Context: termContext}
		if err := svc.Terms().UpsertTerm(ctx, term); err != nil {
			return err
		}
		fmt.Printf("upserted term %s\n", term.ID)
		return nil
	},
}

var termsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Bulk-import terms from a YAML list",
	Long: `Imports terms from a YAML file shaped like:

  - id: gradient-descent
    name: Gradient Descent
    context: first-order optimization for differentiable losses
  - id: backpropagation
    name: Backpropagation`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var imported []terms.Term
		if err := yaml.Unmarshal(raw, &imported); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		for _, term := range imported {
			if err := svc.Terms().UpsertTerm(ctx, term); err != nil {
				return fmt.Errorf("upsert %s: %w", term.ID, err)
			}
		}
		fmt.Printf("imported %d terms\n", len(imported))
		return nil
	},
}

var termsPendingCmd = &cobra.Command{
	Use:   "pending <term-id>",
	Short: "List the columns still unfilled for a term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		pending, err := svc.Terms().ListPendingColumns(ctx, args[0])
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("all columns filled")
			return nil
		}
		for _, columnID := range pending {
			fmt.Println(columnID)
		}
		return nil
	},
}

func init() {
	termsAddCmd.Flags().StringVar(&termContext, "context", "", "disambiguating context for the term")
	termsCmd.AddCommand(termsAddCmd)
	termsCmd.AddCommand(termsImportCmd)
	termsCmd.AddCommand(termsPendingCmd)
	rootCmd.AddCommand(termsCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/albapepper/courtwatch/internal/app"
	"github.com/albapepper/courtwatch/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage notification rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesExportCmd())
	cmd.AddCommand(rulesDeleteCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return printRules(cmd.OutOrStdout(), a.Store.ListRules())
			})
		},
	}
}

func rulesImportCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import rules from a YAML or JSON file",
		Long:  "Rules with an id matching an existing rule replace it and keep its runtime state. --replace drops rules not in the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readRules(args[0])
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				imported, err := a.Store.ImportRules(ctx, batch, replace)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), colors.Success(fmt.Sprintf("Imported %d rules", len(imported))))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete rules not present in the file")
	return cmd
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a rules file without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readRules(args[0])
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Normalize()
			}
			if err := rules.ValidateAll(batch); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), colors.Success(fmt.Sprintf("%d rules OK", len(batch))))
			return nil
		},
	}
}

func rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every rule as YAML (without runtime state)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				data, err := rules.EncodeRules(a.Store.ListRules())
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Store.DeleteRule(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), colors.Success("Deleted "+args[0]))
				return nil
			})
		},
	}
}

func readRules(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return rules.DecodeRules(path, data)
}

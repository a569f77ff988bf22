package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cvbuilder/internal/templates"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the template catalog",
	}

	var dir, category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = cfg.TemplatesDir
			}
			catalog := templates.Default()
			if strings.TrimSpace(dir) != "" {
				loaded, err := templates.Load(dir)
				if err != nil {
					return err
				}
				catalog = loaded
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPREMIUM")
			for _, t := range catalog.List(category) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", t.ID, t.Name, t.Category, t.Premium)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&dir, "dir", "", "directory holding catalog.yaml (default $TEMPLATES_DIR or built-in)")
	list.Flags().StringVar(&category, "category", "", "only list this category")
	cmd.AddCommand(list)
	return cmd
}

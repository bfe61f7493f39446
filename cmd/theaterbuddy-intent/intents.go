package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	intentsJSON    bool
	intentsCatalog string
)

var intentsCmd = &cobra.Command{
	Use:   "intents",
	Short: "List the intents the chatbot can recognize",
	RunE:  runIntents,
}

func init() {
	intentsCmd.Flags().BoolVar(&intentsJSON, "json", false, "print the tool schemas sent to the model as JSON")
	intentsCmd.Flags().StringVar(&intentsCatalog, "catalog", "", "catalog YAML file (default: $CATALOG_FILE, then the built-in catalog)")
}

func runIntents(cmd *cobra.Command, args []string) error {
	path := intentsCatalog
	if path == "" {
		path = os.Getenv("CATALOG_FILE")
	}
	catalog, err := loadCatalog(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if intentsJSON {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog.Tools())
	}

	for _, intent := range catalog.Intents {
		fmt.Fprintf(out, "%s\n  %s\n", intent.Name, intent.Description)
		for _, field := range intent.Fields {
			marker := " "
			if field.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-14s %-8s %s\n", marker, field.Name, field.Type, field.Description)
		}
	}
	fmt.Fprintf(out, "\nText-only intents: %s\n", strings.Join(catalog.SimpleIntents, ", "))
	fmt.Fprintf(out, "Fallback intent: %s\n", catalog.UnknownIntent)
	return nil
}

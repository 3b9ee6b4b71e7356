// cmd/tools/template-loader/validate.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/models"
	registertemplates "listing-matcher/internal/workers/listing/register-templates"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a template catalog file",
	Long:  "Checks every template document against the template schema and invariants and prints the derived slot counts.",
	RunE:  runValidate,
}

var validateInput string

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "in", "i", "", "Path to catalog file, .json or .yaml (required)")
	if err := validateCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	templates, err := readCatalog(validateInput)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(registertemplates.Summarize(templates)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d templates valid\n", len(templates))
	return nil
}

// readCatalog decodes and validates a catalog file.
func readCatalog(path string) ([]models.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	docs, err := catalog.DecodeDocuments(path, data)
	if err != nil {
		return nil, err
	}
	templates, err := registertemplates.ParseDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("catalog %s is invalid: %w", path, err)
	}
	return templates, nil
}

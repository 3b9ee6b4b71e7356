// cmd/tools/template-loader/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "template-loader",
	Short: "Validate, rank and load listing template catalogs",
	Long:  "template-loader checks JSON or YAML template catalogs, previews how they rank for a set of image counts, and upserts them into the Postgres template store.",
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

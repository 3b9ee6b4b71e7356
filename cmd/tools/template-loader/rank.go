// cmd/tools/template-loader/rank.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/models"
	scoretemplates "listing-matcher/internal/workers/listing/score-templates"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a catalog file for given image counts",
	Long:  "Scores every template of a catalog file against property/logo/realtor photo counts and prints the ranking, best first.",
	RunE:  runRank,
}

var (
	rankInput    string
	rankProperty int
	rankLogos    int
	rankRealtor  int
	rankTop      int
)

func init() {
	rankCmd.Flags().StringVarP(&rankInput, "in", "i", "", "Path to catalog file, .json or .yaml (required)")
	rankCmd.Flags().IntVar(&rankProperty, "property", 0, "Number of property images")
	rankCmd.Flags().IntVar(&rankLogos, "logos", 0, "Number of logos")
	rankCmd.Flags().IntVar(&rankRealtor, "realtor", 0, "Number of realtor photos")
	rankCmd.Flags().IntVar(&rankTop, "top", 0, "Only print the best N templates (0 prints all)")
	if err := rankCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	snapshot, err := catalog.NewFileStore(rankInput).ListTemplates(cmd.Context())
	if err != nil {
		return err
	}

	counts := models.CategoryCounts{PropertyImages: rankProperty, Logos: rankLogos, RealtorPhotos: rankRealtor}
	_, ranking, err := scoretemplates.Select(counts, snapshot)
	if err != nil {
		return err
	}
	if rankTop > 0 {
		ranking = scoretemplates.TopN(ranking, rankTop)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ranking)
}

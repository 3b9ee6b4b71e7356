// cmd/tools/template-loader/load.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/common/config"
	"listing-matcher/internal/common/database"
	"listing-matcher/internal/common/logger"
	registertemplates "listing-matcher/internal/workers/listing/register-templates"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Upsert a catalog file into the template store",
	Long:  "Validates a catalog file, creates the templates table if needed, upserts every template and drops the cached snapshot.",
	RunE:  runLoad,
}

var (
	loadInput   string
	loadConfig  string
	loadTimeout time.Duration
)

func init() {
	loadCmd.Flags().StringVarP(&loadInput, "in", "i", "", "Path to catalog file, .json or .yaml (required)")
	loadCmd.Flags().StringVarP(&loadConfig, "config", "c", "", "Path to config file (defaults to configs/config.yaml)")
	loadCmd.Flags().DurationVar(&loadTimeout, "timeout", 30*time.Second, "Overall timeout")
	if err := loadCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	templates, err := readCatalog(loadInput)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if loadConfig != "" {
		cfg, err = config.LoadFromFile(loadConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewStructured(cfg.Logging.Level, "console")

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()

	store := catalog.NewCachedStore(
		catalog.NewPostgresStore(pg.DB),
		redis.Client,
		config.GetDuration(cfg.Pipeline.TemplateCacheTTL),
		log,
	)
	if err := store.UpsertTemplates(ctx, templates); err != nil {
		return fmt.Errorf("failed to store templates: %w", err)
	}

	for _, r := range registertemplates.Summarize(templates) {
		log.Info("template loaded", map[string]interface{}{
			"id":        r.ID,
			"name":      r.Name,
			"imgCount":  r.ImgCount,
			"textCount": r.TextCount,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d templates from %s\n", len(templates), loadInput)
	return nil
}

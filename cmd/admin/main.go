package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/vnkhanh/podcastr-backend/config"
	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/users"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "podcastr-admin",
	Short: "Maintenance commands for the Podcastr backend",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logger.Initialize(cfg.LogLevel, cfg.LogFile)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return err
		}
		if err := config.Migrate(db); err != nil {
			return err
		}
		fmt.Println("Migration complete")
		return nil
	},
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <identity> <viewer|creator>",
	Short: "Switch a user between viewer and creator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		user, err := users.NewService(db).SetRole(cmd.Context(), users.Identity{Key: args[0]}, models.UserRole(args[1]))
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", user.IdentityKey, user.Role)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every podcast to the Elasticsearch index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := config.InitDB(cfg)
		if err != nil {
			return err
		}
		index, err := search.NewElasticIndex(cfg.ElasticsearchURL)
		if err != nil {
			return err
		}
		if err := index.EnsureIndex(cmd.Context()); err != nil {
			return err
		}
		n, err := reindex(cmd.Context(), db, index)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d podcasts\n", n)
		return nil
	},
}

// reindex upserts podcasts in batches of 100.
func reindex(ctx context.Context, db *gorm.DB, index search.Index) (int, error) {
	var batch []models.Podcast
	total := 0
	result := db.WithContext(ctx).FindInBatches(&batch, 100, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := index.Upsert(ctx, &batch[i]); err != nil {
				return fmt.Errorf("index podcast %s: %w", batch[i].ID, err)
			}
			total++
		}
		return nil
	})
	return total, result.Error
}

func init() {
	rootCmd.AddCommand(migrateCmd, setRoleCmd, reindexCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	defer logger.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

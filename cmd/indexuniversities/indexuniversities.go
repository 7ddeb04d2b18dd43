package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"counsellor/config"
	"counsellor/db"
	"counsellor/services/embedding"
	"counsellor/services/pinecone"

	"github.com/spf13/cobra"
)

var (
	batchSize   int
	skipCreate  bool
	dryRun      bool
	maxUniCount int
)

var rootCmd = &cobra.Command{
	Use:   "indexuniversities",
	Short: "Embed the university catalogue and upsert it into the search index",
	Long: `Reads universities from Postgres in batches, builds a compact summary for
each one and writes its embedding with filterable metadata (country, cost,
requirement profile) to the Pinecone index used for recommendations.`,
	RunE: runIndex,
}

func init() {
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 32, "Universities read and embedded per batch")
	rootCmd.Flags().BoolVar(&skipCreate, "skip-create", false, "Do not create the index when it is missing")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the summaries without embedding or upserting")
	rootCmd.Flags().IntVar(&maxUniCount, "limit", 0, "Stop after this many universities (0 means all)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	log.Printf("[INFO] Starting university indexing process")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DB_URL environment variable is required")
	}
	if batchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}

	universityRepo, err := db.NewPostgresUniversityRepository(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize university database: %w", err)
	}
	defer universityRepo.Close()

	var index *pinecone.Service
	if !dryRun {
		if cfg.PineconeAPIKey == "" {
			return fmt.Errorf("PINECONE_API_KEY environment variable is required")
		}

		embedder, dimension, err := embedding.New(ctx, cfg.EmbeddingProvider, cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
		if err != nil {
			return err
		}

		index, err = pinecone.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace, embedder)
		if err != nil {
			return err
		}

		if !skipCreate {
			if err := index.EnsureIndex(ctx, dimension); err != nil {
				return fmt.Errorf("failed to ensure Pinecone index: %w", err)
			}
		}
	}

	total := 0
	for offset := 0; ; offset += batchSize {
		limit := batchSize
		if maxUniCount > 0 {
			limit = min(limit, maxUniCount-total)
			if limit <= 0 {
				break
			}
		}

		universities, err := universityRepo.ListUniversities(ctx, offset, limit)
		if err != nil {
			return fmt.Errorf("failed to read universities at offset %d: %w", offset, err)
		}
		if len(universities) == 0 {
			break
		}

		if dryRun {
			for _, university := range universities {
				log.Printf("[INFO] %s:\n%s", university.UniversityID, pinecone.SummaryText(university))
			}
			total += len(universities)
			continue
		}

		count, err := index.UpsertUniversities(ctx, universities)
		if err != nil {
			return fmt.Errorf("failed to index batch at offset %d: %w", offset, err)
		}
		total += count
		log.Printf("[INFO] Indexed %d universities so far", total)

		if len(universities) < limit {
			break
		}
	}

	log.Printf("[INFO] University indexing completed: %d universities", total)
	return nil
}

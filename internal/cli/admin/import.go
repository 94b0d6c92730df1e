package admin

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/parley/internal/config"
	"github.com/cloo-solutions/parley/internal/database"
	"github.com/cloo-solutions/parley/internal/openai"
	"github.com/cloo-solutions/parley/internal/repository"
	"github.com/cloo-solutions/parley/internal/service"
	"github.com/cloo-solutions/parley/internal/storage"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <domain>",
		Short: "Import knowledge base records from a CSV file",
		Long: `Import question/answer records into a domain from a CSV file.

The CSV must have two columns: question,answer. A header row is skipped.
The source is either a local file (--file) or an object in the configured
S3 bucket (--s3-key). Rows are embedded at import time when an OpenAI key
is configured; otherwise the backfill worker embeds them later.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("file", "f", "", "Path to a local CSV file")
	cmd.Flags().String("s3-key", "", "Object key of a CSV file in the configured S3 bucket")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	domainName := args[0]

	filePath, _ := cmd.Flags().GetString("file")
	s3Key, _ := cmd.Flags().GetString("s3-key")
	if (filePath == "") == (s3Key == "") {
		return fmt.Errorf("exactly one of --file or --s3-key is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var source io.ReadCloser
	if filePath != "" {
		source, err = os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
	} else {
		if !cfg.HasS3() {
			return fmt.Errorf("--s3-key requires PARLEY_S3_ENDPOINT, PARLEY_S3_ACCESS_KEY_ID and PARLEY_S3_SECRET_ACCESS_KEY")
		}
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		source, err = s3Client.GetObject(ctx, s3Key)
		if err != nil {
			return fmt.Errorf("failed to fetch CSV from S3: %w", err)
		}
	}
	defer source.Close()

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	recordRepo := repository.NewRecordRepository(pool)

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
	} else {
		log.Println("no OpenAI key configured, records stored without embeddings")
	}

	matcher := service.NewMatcherService(recordRepo, embeddingClient, cfg.MatchThreshold)
	recordSvc := service.NewRecordService(recordRepo, embeddingClient, matcher)

	result, err := recordSvc.ImportCSV(ctx, domainName, source)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("imported %d records into %q (%d rows skipped)\n", result.Inserted, domainName, result.Skipped)
	return nil
}

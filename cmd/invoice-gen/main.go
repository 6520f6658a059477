package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"invoice-gen/config"
	"invoice-gen/core"

	// Database drivers

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("Generation failed", "error", err)
		os.Exit(1)
	}
}

func run(output io.Writer, args []string) error {
	flags := flag.NewFlagSet("invoice-gen", flag.ContinueOnError)
	flags.SetOutput(output)

	inputData := flags.String("data", "", "Path to the input invoice data JSON (single mode)")
	outputPath := flags.String("output", "", "Output workbook path (single mode; defaults next to the input)")
	templateDir := flags.String("templates", "./templates", "Template directory")
	configDir := flags.String("configs", "./configs", "Bundle config directory")
	dafMode := flags.Bool("daf", false, "Use the DAF aggregation field mapping")
	customMode := flags.Bool("custom", false, "Prefer custom aggregation results")
	debug := flags.Bool("debug", false, "Enable debug logging")

	bulkSource := flags.String("bulk-source", "", "Source table/view/file for bulk generation (enables bulk mode)")
	bulkConfig := flags.String("bulk-config", "", "Bundle config for bulk generation")
	bulkTemplate := flags.String("bulk-template", "", "Template workbook for bulk generation")
	bulkOutputDir := flags.String("bulk-output", "./output", "Directory for bulk output files")
	bulkFilenameKey := flags.String("bulk-filename-key", "", "Record field used to name bulk output files")
	bulkZip := flags.String("bulk-zip", "", "Write generated workbooks into this zip archive")
	fetcherType := flags.String("fetcher", "csv", "Record fetcher type: csv, dynamodb, mysql, postgres")
	csvDir := flags.String("csv-dir", "./data", "Root directory for the csv fetcher")
	dbDSN := flags.String("db-dsn", "", "Database connection string (DSN) for mysql/postgres")
	filterFlag := flags.String("filter", "", "Equality filters for bulk fetch, key=value comma-separated")

	s3Bucket := flags.String("s3-bucket", "", "S3 bucket name for uploading output")
	s3Prefix := flags.String("s3-prefix", "invoice-gen-output", "S3 prefix (folder) for uploaded files")

	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	generator := core.NewGenerator(*templateDir, *configDir, *dafMode, *customMode)

	if *bulkSource != "" {
		return runBulk(generator, *bulkSource, *bulkConfig, *bulkTemplate, *bulkOutputDir,
			*bulkFilenameKey, *bulkZip, *fetcherType, *csvDir, *dbDSN, *filterFlag,
			*s3Bucket, *s3Prefix)
	}

	if *inputData == "" {
		return fmt.Errorf("either -data or -bulk-source is required")
	}

	out := *outputPath
	if out == "" {
		stem := strings.TrimSuffix(filepath.Base(*inputData), filepath.Ext(*inputData))
		out = filepath.Join(filepath.Dir(*inputData), stem+"_invoice.xlsx")
	}

	slog.Info("Generating invoice", "data", *inputData, "output", out)
	result, err := generator.Run(*inputData, out)
	if err != nil {
		return err
	}
	slog.Info("Successfully generated", "output", result)

	if *s3Bucket != "" {
		return uploadOutput(filepath.Dir(result), *s3Bucket, *s3Prefix)
	}
	return nil
}

func runBulk(generator *core.Generator, source, configPath, templatePath, outputDir, filenameKey, zipPath, fetcherType, csvDir, dbDSN, filterFlag, s3Bucket, s3Prefix string) error {
	if configPath == "" || templatePath == "" {
		return fmt.Errorf("bulk mode requires -bulk-config and -bulk-template")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid bundle config %s: %w", configPath, err)
	}

	fetcher, err := buildFetcher(fetcherType, csvDir, dbDSN)
	if err != nil {
		return err
	}

	params, err := parseFilters(filterFlag)
	if err != nil {
		return err
	}

	bulk := core.NewBulkGenerator(generator, fetcher, filenameKey)
	result, err := bulk.GenerateAll(source, params, cfg, templatePath, outputDir)
	if err != nil {
		return err
	}
	for _, genErr := range result.Errors {
		slog.Warn("Record failed during bulk generation", "error", genErr)
	}

	if zipPath != "" && len(result.OutputPaths) > 0 {
		if err := core.ZipArchive(result.OutputPaths, zipPath); err != nil {
			return err
		}
	}

	if s3Bucket != "" {
		if err := uploadOutput(outputDir, s3Bucket, s3Prefix); err != nil {
			return err
		}
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("bulk generation completed with %d failed records", len(result.Errors))
	}
	return nil
}

func buildFetcher(fetcherType, csvDir, dbDSN string) (core.RowFetcher, error) {
	switch fetcherType {
	case "dynamodb":
		slog.Info("Initializing DynamoDB record fetcher")
		cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
		return core.NewDynamoDBRowFetcher(cfg), nil
	case "mysql", "postgres":
		if dbDSN == "" {
			return nil, fmt.Errorf("db-dsn is required for %s fetcher", fetcherType)
		}
		slog.Info("Initializing SQL record fetcher", "type", fetcherType)
		db, err := sql.Open(fetcherType, dbDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open db connection: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping db: %w", err)
		}
		return core.NewSQLRowFetcher(db, fetcherType), nil
	default:
		slog.Info("Initializing CSV record fetcher", "dir", csvDir)
		return core.NewCSVRowFetcher(csvDir), nil
	}
}

func parseFilters(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return params, nil
}

func uploadOutput(dir, bucket, prefix string) error {
	slog.Info("Starting S3 upload", "bucket", bucket, "prefix", prefix)
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		return fmt.Errorf("unable to load AWS SDK config for S3: %w", err)
	}
	uploader := core.NewS3Uploader(cfg, bucket, prefix)
	if err := uploader.UploadDirectory(dir); err != nil {
		return fmt.Errorf("failed to upload output to s3: %w", err)
	}
	slog.Info("Successfully uploaded to S3")
	return nil
}

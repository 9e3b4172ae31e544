package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource"
	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource/mssql"
	"github.com/spinhouse/prompt-engine/pkg/adapters/datasource/postgres"
	"github.com/spinhouse/prompt-engine/pkg/config"
	"github.com/spinhouse/prompt-engine/pkg/database"
	"github.com/spinhouse/prompt-engine/pkg/logging"
	"github.com/spinhouse/prompt-engine/pkg/models"
	"github.com/spinhouse/prompt-engine/pkg/repositories"
	"github.com/spinhouse/prompt-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	question := flag.String("question", "", "Business question to build a SQL-generation prompt for")
	extraContext := flag.String("context", "", "Extra free-text context to carry into the prompt's context section")
	detailed := flag.Bool("detailed", false, "Print section breakdown and token estimate alongside the prompt")
	flag.Parse()

	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: prompt-engine -question \"top games by revenue this month\" [-detailed]")
		os.Exit(2)
	}

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting prompt-engine",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.String("datasource_type", cfg.Datasource.Type))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		// Connection errors can carry the credential-bearing URL.
		logger.Fatal("Failed to connect to engine store",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}

	adapter, err := newDatasourceAdapter(ctx, cfg, logger)
	if err != nil {
		// The pipeline degrades without a datasource: no live value
		// sampling and no schema discovery, but prompts still assemble.
		logger.Warn("Datasource unavailable, continuing without value sampling",
			zap.String("error", logging.SanitizeError(err)))
	}
	if adapter != nil {
		defer adapter.Close()
	}

	promptSvc := wireServices(cfg, db, adapter, logger)

	tables, err := discoverSchema(ctx, adapter)
	if err != nil {
		logger.Warn("Schema discovery failed, prompt falls back to defaults", zap.Error(err))
	}

	if *detailed {
		details := promptSvc.BuildDetailedQueryPrompt(ctx, *question, tables, *extraContext)
		fmt.Printf("Template: %s (fallback: %v)\n", details.TemplateName, details.FallbackUsed)
		fmt.Printf("Estimated tokens: %d\n", details.EstimatedTokens)
		for _, section := range details.Sections {
			fmt.Printf("\n--- %s ---\n%s\n", section.Label, section.Content)
		}
		fmt.Printf("\n--- prompt ---\n%s\n", details.Prompt)
		return
	}

	fmt.Println(promptSvc.BuildQueryPrompt(ctx, *question, tables, *extraContext))
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer migrationDB.Close()

	return database.RunMigrations(migrationDB, cfg.MigrationsPath, logger)
}

func newDatasourceAdapter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.Adapter, error) {
	if cfg.Datasource.User == "" || cfg.Datasource.Database == "" {
		return nil, fmt.Errorf("datasource not configured")
	}
	if err := datasource.ValidateType(cfg.Datasource.Type); err != nil {
		return nil, err
	}

	dsCfg := &datasource.Config{
		Type:           cfg.Datasource.Type,
		Host:           cfg.Datasource.Host,
		Port:           cfg.Datasource.Port,
		User:           cfg.Datasource.User,
		Password:       cfg.Datasource.Password,
		Database:       cfg.Datasource.Database,
		SSLMode:        cfg.Datasource.SSLMode,
		MaxValueLength: cfg.Sampler.MaxValueLength,
	}

	switch cfg.Datasource.Type {
	case datasource.TypePostgres:
		adapter, err := postgres.New(ctx, dsCfg, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	case datasource.TypeMSSQL:
		adapter, err := mssql.New(ctx, dsCfg, logger)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unsupported datasource type %q", cfg.Datasource.Type)
	}
}

func wireServices(cfg *config.Config, db *database.DB, adapter datasource.Adapter, logger *zap.Logger) services.PromptService {
	templateRepo := repositories.NewTemplateRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	promptLogRepo := repositories.NewPromptLogRepository(db)

	var sampler datasource.ValueSampler
	if adapter != nil {
		sampler = adapter
	}

	pack := services.LoadRulePack(cfg.RulePackPath, logger)
	analyzer := services.NewKeywordSemanticAnalyzer(logger)
	relevance := services.NewSchemaRelevanceService(analyzer, cfg.Scoring, logger)
	description := services.NewSchemaDescriptionService(sampler, cfg.Sampler, logger)
	rules := services.NewBusinessRuleEngine(pack, logger)
	examples := services.NewExampleSelector(pack, logger)
	learning := services.NewLearningService(feedbackRepo, services.NewMemoryInsightCache(), logger)

	return services.NewPromptService(
		relevance, description, rules, examples, learning,
		templateRepo, promptLogRepo, logger)
}

func discoverSchema(ctx context.Context, adapter datasource.Adapter) ([]models.TableMetadata, error) {
	if adapter == nil {
		return nil, nil
	}
	return adapter.GetSchema(ctx)
}

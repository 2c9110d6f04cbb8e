package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/ledger"
	ledgerRepoPkg "github.com/fekuna/omnipos-catalog-gate/internal/ledger/repository"
	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"github.com/fekuna/omnipos-catalog-gate/internal/notify"
	"github.com/fekuna/omnipos-catalog-gate/internal/sku"
	"github.com/fekuna/omnipos-catalog-gate/internal/webhook"

	invRepoPkg "github.com/fekuna/omnipos-catalog-gate/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-catalog-gate/internal/inventory/usecase"

	prodRepoPkg "github.com/fekuna/omnipos-catalog-gate/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-catalog-gate/internal/product/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "catalog-gate",
	Short:         "Publish-readiness gate for flagged catalog products",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load() // Load .env file if it exists

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(tenantsCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	return logger.NewZapLogger(logConfig)
}

func openLedger(ctx context.Context, cfg config.LedgerConfig) (ledger.Repository, error) {
	if cfg.Driver == "none" {
		return ledgerRepoPkg.Nop{}, nil
	}
	repo, err := ledgerRepoPkg.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func runCmd() *cobra.Command {
	var tenantName, profilePath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan flagged products once and apply the compliance workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadEnv()
			if cmd.Flags().Changed("tenant") {
				cfg.Tenant.Name = tenantName
			}
			if cmd.Flags().Changed("profile") {
				cfg.Tenant.ProfilePath = profilePath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			tenant, err := config.LoadTenant(cfg.Tenant.Name, cfg.Tenant.ProfilePath)
			if err != nil {
				return err
			}

			appLogger := newLogger(cfg)
			defer appLogger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runID := uuid.NewString()

			// 1. Admin API client
			client, err := gql.NewClient(gql.Config{
				Store:       cfg.Shopify.Store,
				APIVersion:  cfg.Shopify.APIVersion,
				AccessToken: cfg.Shopify.AccessToken,
				Timeout:     time.Duration(cfg.Shopify.TimeoutSeconds) * time.Second,
				MaxAttempts: cfg.Shopify.MaxAttempts,
				MaxDelay:    time.Duration(cfg.Shopify.MaxDelaySeconds) * time.Second,
			}, appLogger)
			if err != nil {
				return err
			}

			// 2. Run-scoped lookup cache
			var store sku.Store = sku.NewMemoryStore()
			if cfg.Cache.Backend == "redis" {
				redisClient := redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer redisClient.Close()
				if err := redisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("connect to redis: %w", err)
				}
				store = sku.NewRedisStore(redisClient, runID, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
				appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
			}

			// 3. Run ledger
			ledgerRepo, err := openLedger(ctx, cfg.Ledger)
			if err != nil {
				return err
			}
			defer ledgerRepo.Close()

			// 4. Repositories and use cases
			prodRepo := prodRepoPkg.NewGraphQLRepository(client, tenant.Metafields, cfg.Shopify.PageSize)
			invRepo := invRepoPkg.NewGraphQLRepository(client, cfg.Shopify.PageSize)
			invUC := invUCPkg.NewInventoryUseCase(invRepo, appLogger)

			webhooks := webhook.NewClient(webhook.Config{
				FieldChangedURL: cfg.Webhooks.FieldChangedURL,
				UnitPriceURL:    cfg.Webhooks.UnitPriceURL,
				ConfirmItemsURL: cfg.Webhooks.ConfirmItemsURL,
				Timeout:         time.Duration(cfg.Webhooks.TimeoutSeconds) * time.Second,
				Fields:          tenant.Payload,
			}, appLogger)
			router := notify.NewRouter(cfg.Notify.URL, cfg.Notify.SuccessURL,
				time.Duration(cfg.Webhooks.TimeoutSeconds)*time.Second, appLogger)

			prodUC := prodUCPkg.NewProductUseCase(prodUCPkg.Deps{
				RunID:     runID,
				Tenant:    tenant,
				Repo:      prodRepo,
				Inventory: invUC,
				Cache:     store,
				Webhooks:  webhooks,
				Notifier:  router,
				Ledger:    ledgerRepo,
				Budget:    client.Budget,
				Logger:    appLogger,
			})

			run, err := prodUC.Run(ctx)
			if err != nil {
				return fmt.Errorf("run %s aborted: %w", runID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d checked, %d passed, %d failed, %d errored\n",
				run.ID, run.Checked, run.Passed, run.Failed, run.Errored)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantName, "tenant", "", "built-in tenant profile (overrides TENANT)")
	cmd.Flags().StringVar(&profilePath, "profile", "", "path to a tenant YAML profile (overrides TENANT_PROFILE)")
	return cmd
}

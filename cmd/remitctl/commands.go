package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/swift-remit/internal/app"
	"github.com/ayo6706/swift-remit/internal/config"
	"github.com/ayo6706/swift-remit/internal/db"
	"github.com/ayo6706/swift-remit/internal/gateway"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPostgresConfig()
			if err != nil {
				return err
			}
			version, err := db.Migrate(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func settleCmd() *cobra.Command {
	var (
		outcome string
		reason  string
	)
	cmd := &cobra.Command{
		Use:   "settle [transaction-id]",
		Short: "Record a settlement outcome for a transaction submitted to SWIFT",
		Long: `Record the final settlement outcome of a submitted_to_swift transaction when
neither the webhook nor the settlement worker could.

Examples:
  remitctl settle 6f1c... --outcome completed
  remitctl settle 6f1c... --outcome failed --reason "beneficiary account closed"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid transaction id: %w", err)
			}
			o := gateway.Outcome(strings.ToLower(strings.TrimSpace(outcome)))
			if o == gateway.OutcomeFailed && strings.TrimSpace(reason) == "" {
				return errors.New("--reason is required when --outcome is failed")
			}

			return withServices(cmd.Context(), func(svc *services) error {
				t, err := svc.settlement.RecordOutcome(cmd.Context(), service.SystemActor("remitctl"), id, o, strings.TrimSpace(reason))
				if err != nil {
					return fmt.Errorf("record outcome (%s): %w", models.ErrorKind(err), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "transaction %s is now %s\n", t.ID, t.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "settlement outcome: completed or failed")
	cmd.Flags().StringVar(&reason, "reason", "", "failure reason recorded on the transaction")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check every transaction against the lifecycle invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(svc *services) error {
				violations, err := svc.reconciliation.Run(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, v := range violations {
					if err := enc.Encode(v); err != nil {
						return err
					}
				}
				if len(violations) > 0 {
					return fmt.Errorf("%d integrity violations found", len(violations))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "no integrity violations")
				return nil
			})
		},
	}
}

type services struct {
	settlement     *service.SettlementService
	reconciliation *service.ReconciliationService
}

func withServices(ctx context.Context, fn func(*services) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadPostgresConfig()
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	store, pool, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	publisher := app.NewPublisher(cfg, logger)
	defer publisher.Close()

	engine := service.NewTransitionEngine(store, publisher)
	return fn(&services{
		settlement:     service.NewSettlementService(store, engine, gateway.NewMockNetwork()),
		reconciliation: service.NewReconciliationService(store),
	})
}

func loadPostgresConfig() (*config.Config, error) {
	cfg, err := config.LoadForCLI()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, fmt.Errorf("remitctl needs STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
	}
	return cfg, nil
}

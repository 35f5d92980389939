// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"stockflow/internal/app"
	"stockflow/internal/config"
	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/product"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/repos"
	"stockflow/migrations"
	"stockflow/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Pool())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := migrate(ctx, pool, log); err != nil {
		log.Fatalw("failed to apply migrations", "error", err)
	}

	repositories, err := repos.New(postgres.NewTxManager(pool))
	if err != nil {
		log.Fatalw("failed to build repositories", "error", err)
	}
	services := app.NewServices(repositories)

	if os.Getenv("SEED_DEMO_DATA") != "false" {
		seedProducts(ctx, services, log)
	}

	token, expires, err := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret)).
		GenerateAccessToken(appctx.UserContext{
			ActorID: 1,
			Email:   "admin@stockflow.local",
			Roles:   []string{"admin"},
			IsAdmin: true,
		})
	if err != nil {
		log.Fatalw("failed to issue development token", "error", err)
	}

	log.Infow("seeding completed successfully", "token_expires_at", expires)
	fmt.Println(token)
}

// migrate applies every embedded schema file in name order. The files are idempotent.
func migrate(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		log.Infow("migration applied", "file", name)
	}
	return nil
}

func seedProducts(ctx context.Context, services *app.Services, log *logger.Logger) {
	products := []product.CreateInput{
		{Name: "Denim Jacket", SKU: "DEN-JKT", CostPrice: types.MustMoney("12.50"), SellingPrice: types.MustMoney("35.00"), InitialStock: 20},
		{Name: "Flannel Shirt", SKU: "FLN-SHT", CostPrice: types.MustMoney("4.00"), SellingPrice: types.MustMoney("15.00"), InitialStock: 45},
		{Name: "Wool Sweater", SKU: "WOL-SWT", CostPrice: types.MustMoney("6.75"), SellingPrice: types.MustMoney("22.00"), InitialStock: 12},
		{Name: "Cargo Pants", SKU: "CRG-PNT", CostPrice: types.MustMoney("5.20"), SellingPrice: types.MustMoney("18.00"), InitialStock: 0},
	}

	for _, in := range products {
		p, err := services.Products.Create(ctx, in)
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			log.Infow("product already exists", "sku", in.SKU)
			continue
		}
		if err != nil {
			log.Warnw("failed to seed product", "sku", in.SKU, "error", err)
			continue
		}
		log.Infow("product seeded", "product_id", p.ID, "sku", p.SKU, "stock", p.Stock)
	}
}

// Package repos assembles the PostgreSQL storage backend.
package repos

import (
	"fmt"

	"stockflow/internal/app"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/catalog_repo"
	"stockflow/internal/infrastructure/storage/postgres/document_repo"
	"stockflow/internal/infrastructure/storage/postgres/register_repo"
)

// New builds every repository on top of txm.
func New(txm *postgres.TxManager) (app.Repositories, error) {
	recorder, err := postgres.NewAuditRecorder(txm)
	if err != nil {
		return app.Repositories{}, fmt.Errorf("audit recorder: %w", err)
	}

	return app.Repositories{
		TxManager: txm,
		Products:  catalog_repo.NewProductRepo(txm),
		Movements: register_repo.NewMovementRepo(txm),
		Purchases: document_repo.NewPurchaseRepo(txm),
		Sales:     document_repo.NewSaleRepo(txm),
		Expenses:  document_repo.NewExpenseRepo(txm),
		Ledger:    register_repo.NewLedgerStateRepo(txm),
		Audit:     recorder,
	}, nil
}

// Package app wires repositories into the domain services shared by the
// server, the worker and the seeding tool.
package app

import (
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/adjustment"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/expense"
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/product"
	"stockflow/internal/domain/purchase"
	"stockflow/internal/domain/reconcile"
	"stockflow/internal/domain/sale"
)

// ProductStore is everything the product catalog and the ledger need from product storage.
type ProductStore interface {
	product.Repository
	ledger.ProductLocker
}

// Repositories is the storage backend of the application.
type Repositories struct {
	TxManager tx.Manager
	Products  ProductStore
	Movements ledger.MovementStore
	Purchases purchase.Repository
	Sales     sale.Repository
	Expenses  expense.Repository
	Ledger    reconcile.Repository
	Audit     audit.Recorder
}

// Services holds the domain services.
type Services struct {
	Products    *product.Service
	Ledger      *ledger.Service
	Expenses    *expense.Service
	Purchases   *purchase.Service
	Sales       *sale.Service
	Adjustments *adjustment.Service
	Reconcile   *reconcile.Service
}

// NewServices builds all services on top of repos.
func NewServices(repos Repositories) *Services {
	stock := ledger.NewService(repos.Products, repos.Movements, repos.TxManager, repos.Audit)
	expenses := expense.NewService(repos.Expenses)

	return &Services{
		Products:    product.NewService(repos.Products),
		Ledger:      stock,
		Expenses:    expenses,
		Purchases:   purchase.NewService(repos.Purchases, stock, expenses, repos.TxManager, repos.Audit),
		Sales:       sale.NewService(repos.Sales, stock, repos.TxManager, repos.Audit),
		Adjustments: adjustment.NewService(stock),
		Reconcile:   reconcile.NewService(repos.Ledger, repos.Audit),
	}
}

package memory

import "stockflow/internal/app"

// Repositories returns the store as an application storage backend.
func (s *Store) Repositories() app.Repositories {
	return app.Repositories{
		TxManager: s,
		Products:  s.Products(),
		Movements: s.Movements(),
		Purchases: s.Purchases(),
		Sales:     s.Sales(),
		Expenses:  s.Expenses(),
		Ledger:    s.Ledger(),
		Audit:     s.Audit(),
	}
}

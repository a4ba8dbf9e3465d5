// Package store persists the photo catalog in SQLite: assets, their tiered
// versions, detected faces, curated persons, and the append-only asset
// history ledger. Mutations that change version state accept ledger entries
// so the change and its audit record commit in one transaction.
package store

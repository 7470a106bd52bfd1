// Package sqlite provides the SQLite-backed governance store.
//
// Decimal values are stored as TEXT so no precision is lost, and timestamps
// as UTC Unix milliseconds. Ledger changes are written in a single transaction
// that re-checks the allocation invariant before committing.
package sqlite

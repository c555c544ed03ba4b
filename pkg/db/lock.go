package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdateSkipLocked adds a row lock that skips rows claimed by other
// workers. SQLite has no row locks, so the clause is omitted there.
func ForUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == DialectSQLite {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
}

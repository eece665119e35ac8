package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. It carries the connection a
// repository was built with, which is a transaction when the repository was
// rebound with WithTx.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Rebind returns a Base that issues statements on tx. A nil tx keeps the
// current connection.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

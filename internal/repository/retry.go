package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

// ErrTransientStore is returned when the store stays unreachable after the
// single retry granted to idempotent reads, or when a write hits a transient
// failure.
var ErrTransientStore = errors.New("store temporarily unavailable")

func isTransient(err error) bool {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// read runs an idempotent query, retrying once on a transient failure.
func read(fn func() error) error {
	err := fn()
	if !isTransient(err) {
		return err
	}
	err = fn()
	if isTransient(err) {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return err
}

// write classifies a write error without retrying it.
func write(err error) error {
	if isTransient(err) {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return err
}

// GormTxManager implements TxManager on a *gorm.DB
type GormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return write(m.db.WithContext(ctx).Transaction(fn))
}

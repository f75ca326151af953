package database

import "gorm.io/gorm"

// TenantScoped restricts a query on a table with a tenant_id column.
func TenantScoped(table string, tenantID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".tenant_id = ?", tenantID)
	}
}

// Before applies an exclusive upper id cursor when one is given.
func Before(table string, before *uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if before == nil {
			return db
		}
		return db.Where(table+".id < ?", *before)
	}
}

// After applies an exclusive lower id cursor.
func After(table string, after uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".id > ?", after)
	}
}

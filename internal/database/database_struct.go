package database

import "gorm.io/gorm"

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// WithTx выполняет fn в одной транзакции
func (d *Database) WithTx(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

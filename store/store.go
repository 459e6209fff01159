// Package store is the gorm-backed data access layer. It implements the
// narrow store interfaces the services declare, including the atomic
// check-and-insert operations the booking path depends on.
package store

import (
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

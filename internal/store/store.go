// Package store defines the record store contract shared by the relational
// and spreadsheet backends.
package store

import (
	"context"
	"errors"

	"tinbox/internal/model"
)

// Backend driver names accepted in configuration.
const (
	DriverSQLite  = "sqlite"
	DriverMySQL   = "mysql"
	DriverXLSX    = "xlsx"
	DriverGSheets = "gsheets"
)

var ErrNotFound = errors.New("donation record not found")

// RecordStore persists donation records.
//
// List returns records in ascending id order and never yields missing
// values: text fields read back as "" and amounts as 0. Update on an
// unknown id returns ErrNotFound; Delete on an unknown id is a no-op.
type RecordStore interface {
	Initialize(ctx context.Context) error
	Add(ctx context.Context, fields model.DonationFields) (int64, error)
	List(ctx context.Context) ([]model.Donation, error)
	Get(ctx context.Context, id int64) (*model.Donation, error)
	Update(ctx context.Context, id int64, fields model.DonationFields) error
	Delete(ctx context.Context, id int64) error
}

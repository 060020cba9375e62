// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gormstore holds the metadata queries shared by the gorm-backed
// metadata plugins. Each plugin opens its own dialect and embeds a Store.
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Store struct {
	db          *gorm.DB
	logger      *slog.Logger
	isTransient func(error) bool
}

// New wraps an open gorm handle, enables tracing and migrates the schema.
// isTransient adds driver specific checks to the shared transient fault
// classification and may be nil.
func New(
	db *gorm.DB,
	logger *slog.Logger,
	isTransient func(error) bool,
) (*Store, error) {
	if db == nil {
		return nil, errors.New("nil database handle")
	}
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		db:          db,
		logger:      logger,
		isTransient: isTransient,
	}
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	// Create table schemas
	s.logger.Debug(fmt.Sprintf("creating table: %#v", &CommitTimestamp{}))
	if err := s.db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := s.db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DB returns the underlying GORM database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// Transaction begins a gorm transaction
func (s *Store) Transaction() types.Txn {
	db := s.db.Begin()
	if db.Error != nil {
		s.logger.Error(
			"failed to begin transaction",
			"component", "database",
			"error", db.Error,
		)
		return newFailedTxn(s.wrapErr("begin transaction", db.Error))
	}
	return newTxn(db)
}

func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	tmpTxn, ok := txn.(*Txn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if tmpTxn.beginErr != nil {
		return nil, tmpTxn.beginErr
	}
	if tmpTxn.db == nil {
		return nil, types.ErrNilTxn
	}
	return tmpTxn.db, nil
}

func (s *Store) wrapErr(op string, err error) error {
	return types.ClassifyStorageError(op, err, s.isTransient)
}

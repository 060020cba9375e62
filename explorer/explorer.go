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

// Package explorer answers client queries about executed transactions by
// joining the stores with the reconciler and the view projector.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/rollupdb/database"
	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/blinklabs-io/rollupdb/view"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/rollupdb/explorer"

// ErrNotFound is returned when the requested transaction or operation is not known
var ErrNotFound = errors.New("not found")

// Store is the subset of the database used for queries
type Store interface {
	GetSubmission(ctx context.Context, hash []byte, txn *database.Txn) (*models.MempoolTx, error)
	GetSubmissions(ctx context.Context, hashes [][]byte, txn *database.Txn) ([]models.MempoolTx, error)
	ExecutedTxByHash(ctx context.Context, hash []byte, txn *database.Txn) (*models.ExecutedTransaction, error)
	ExecutedTxsByBlock(ctx context.Context, blockNumber rollup.BlockNumber, txn *database.Txn) ([]models.ExecutedTransaction, error)
	PriorityOpBySerialID(ctx context.Context, serialID rollup.PriorityOpID, txn *database.Txn) (*models.ExecutedPriorityOperation, error)
	PriorityOpByEthHash(ctx context.Context, ethHash []byte, txn *database.Txn) (*models.ExecutedPriorityOperation, error)
	AccountHistory(ctx context.Context, address rollup.Address, offset int, limit int, direction types.SortDirection) ([]database.HistoryEntry, error)
}

type BlockStatusSource interface {
	GetBlockStatus(ctx context.Context, blockNumber rollup.BlockNumber) (rollup.BlockStatus, error)
}

type ProverRunSource interface {
	GetProverRun(ctx context.Context, blockNumber rollup.BlockNumber) (*rollup.ProverRun, error)
}

type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Store        Store
	BlockStatus  BlockStatusSource
	ProverRuns   ProverRunSource
	Projector    *view.Projector
}

type Explorer struct {
	config  Config
	metrics *explorerMetrics
	tracer  trace.Tracer
}

// New creates an Explorer. A *database.Database satisfies all three
// collaborator interfaces
func New(cfg Config) (*Explorer, error) {
	if cfg.Store == nil {
		return nil, errors.New("explorer: store must be provided")
	}
	if cfg.BlockStatus == nil {
		return nil, errors.New("explorer: block status source must be provided")
	}
	if cfg.ProverRuns == nil {
		return nil, errors.New("explorer: prover run source must be provided")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Projector == nil {
		cfg.Projector = view.NewProjector()
	}
	e := &Explorer{
		config: cfg,
		tracer: otel.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		e.metrics = newExplorerMetrics(cfg.PromRegistry)
	}
	return e, nil
}

// NewFromDatabase creates an Explorer backed by db
func NewFromDatabase(
	db *database.Database,
	promRegistry prometheus.Registerer,
	projector *view.Projector,
) (*Explorer, error) {
	if db == nil {
		return nil, errors.New("explorer: database must be provided")
	}
	return New(Config{
		Logger:       db.Logger(),
		PromRegistry: promRegistry,
		Store:        db,
		BlockStatus:  db,
		ProverRuns:   db,
		Projector:    projector,
	})
}

func (e *Explorer) startSpan(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	return e.tracer.Start(
		ctx,
		"explorer."+name,
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// blockStatuses memoizes block status lookups within a single query
type blockStatuses struct {
	source   BlockStatusSource
	statuses map[int64]rollup.BlockStatus
}

func newBlockStatuses(source BlockStatusSource) *blockStatuses {
	return &blockStatuses{
		source:   source,
		statuses: make(map[int64]rollup.BlockStatus),
	}
}

func (b *blockStatuses) get(
	ctx context.Context,
	blockNumber int64,
) (rollup.BlockStatus, error) {
	if status, ok := b.statuses[blockNumber]; ok {
		return status, nil
	}
	status, err := b.source.GetBlockStatus(ctx, rollup.BlockNumber(blockNumber))
	if err != nil {
		return status, fmt.Errorf("block %d status: %w", blockNumber, err)
	}
	b.statuses[blockNumber] = status
	return status, nil
}

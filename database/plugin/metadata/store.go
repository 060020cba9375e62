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

package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/rollupdb/database/models"
	"github.com/blinklabs-io/rollupdb/database/plugin"
	_ "github.com/blinklabs-io/rollupdb/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/rollupdb/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/rollupdb/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Submissions
	AddMempoolTx(context.Context, *models.MempoolTx, types.Txn) error
	GetMempoolTx(
		context.Context,
		[]byte, // hash
		types.Txn,
	) (*models.MempoolTx, error)
	GetMempoolTxs(
		context.Context,
		[][]byte, // hashes
		types.Txn,
	) ([]models.MempoolTx, error)
	GetMempoolTxsByAccount(
		context.Context,
		[]byte, // address
		int, // limit
		types.SortDirection,
		types.Txn,
	) ([]models.MempoolTx, error)
	DeleteStaleMempoolTxs(
		context.Context,
		time.Time, // before
		types.Txn,
	) (int64, error)

	// Execution records
	AddExecutedTransaction(
		context.Context,
		*models.ExecutedTransaction,
		types.Txn,
	) error
	GetExecutedTransaction(
		context.Context,
		[]byte, // hash
		types.Txn,
	) (*models.ExecutedTransaction, error)
	GetExecutedTransactionsByBlock(
		context.Context,
		int64, // blockNumber
		types.Txn,
	) ([]models.ExecutedTransaction, error)
	GetExecutedTransactionsByHashes(
		context.Context,
		[][]byte, // hashes
		types.Txn,
	) ([]models.ExecutedTransaction, error)

	// Priority operations
	AddExecutedPriorityOperation(
		context.Context,
		*models.ExecutedPriorityOperation,
		types.Txn,
	) error
	GetExecutedPriorityOperationBySerialID(
		context.Context,
		int64, // serialID
		types.Txn,
	) (*models.ExecutedPriorityOperation, error)
	GetExecutedPriorityOperationByEthHash(
		context.Context,
		[]byte, // ethHash
		types.Txn,
	) (*models.ExecutedPriorityOperation, error)
	GetExecutedPriorityOperationsByBlock(
		context.Context,
		int64, // blockNumber
		types.Txn,
	) ([]models.ExecutedPriorityOperation, error)
	GetExecutedPriorityOperationsByAccount(
		context.Context,
		[]byte, // address
		int, // limit
		types.SortDirection,
		types.Txn,
	) ([]models.ExecutedPriorityOperation, error)
}

// New returns the started metadata plugin selected by name
func New(
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}

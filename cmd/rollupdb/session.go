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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/rollupdb/database"
	"github.com/blinklabs-io/rollupdb/explorer"
	"github.com/blinklabs-io/rollupdb/internal/config"
	"github.com/blinklabs-io/rollupdb/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// session holds the resources opened for a single command
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *database.Database
	explorer *explorer.Explorer
	closers  []func()
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun(cfg)
	s := &session{
		cfg:    cfg,
		logger: logger,
	}
	s.closers = append(s.closers, setupTracing(cfg, logger))
	queryTimeout, err := cfg.QueryTimeoutDuration()
	if err != nil {
		s.close()
		return nil, err
	}
	retryBackoff, err := cfg.RetryBackoffDuration()
	if err != nil {
		s.close()
		return nil, err
	}
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		PromRegistry:   prometheus.DefaultRegisterer,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		QueryTimeout:   queryTimeout,
		RetryBackoff:   retryBackoff,
		MaxRetries:     cfg.MaxRetries,
	})
	if err != nil {
		// The database is returned alongside a commit timestamp mismatch
		if db != nil {
			err = errors.Join(err, db.Close())
		}
		s.close()
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			return nil, fmt.Errorf("database stores disagree, recovery needed: %w", err)
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	s.closers = append(s.closers, func() {
		if err := db.Close(); err != nil {
			logger.Error(
				fmt.Sprintf("failed to close database: %s", err),
				"component", programName,
			)
		}
	})
	s.explorer, err = explorer.NewFromDatabase(
		db,
		prometheus.DefaultRegisterer,
		view.NewProjector(
			view.WithDepositSource(cfg.DepositSource),
			view.WithWithdrawTarget(cfg.WithdrawTarget),
		),
	)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// close releases resources in reverse order of acquisition
func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// withSession wraps a command body with session setup and teardown
func withSession(
	fn func(cmd *cobra.Command, args []string, s *session) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, args, s)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

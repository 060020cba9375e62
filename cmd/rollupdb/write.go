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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/spf13/cobra"
)

func submitCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit [tx-json]",
		Short: "Store a signed transaction submission",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			var data []byte
			var err error
			switch {
			case len(args) == 1:
				data = []byte(args[0])
			case file != "":
				data, err = readInput(file)
				if err != nil {
					return err
				}
			default:
				return errors.New("a transaction argument or --file is required")
			}
			tx, err := rollup.DecodeTx(data)
			if err != nil {
				return err
			}
			hash, err := s.db.SubmitTx(cmd.Context(), tx)
			if err != nil {
				return err
			}
			fmt.Println(hash.String())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the transaction from a file, '-' for stdin")
	return cmd
}

func recordCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the executed transactions and priority operations of a block",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			data, err := readInput(file)
			if err != nil {
				return err
			}
			blockNumber, outcomes, priorityOps, err := decodeBlockFile(data)
			if err != nil {
				return err
			}
			return s.db.RecordBlock(cmd.Context(), blockNumber, outcomes, priorityOps)
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "block file, '-' for stdin")
	return cmd
}

func setStatusCommand() *cobra.Command {
	var committed, verified bool
	cmd := &cobra.Command{
		Use:   "set-status <block>",
		Short: "Set the commit and verification status of a block",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			blockNumber, err := parseBlockNumber(args[0])
			if err != nil {
				return err
			}
			if verified && !committed {
				return errors.New("a block must be committed before it is verified")
			}
			return s.db.SetBlockStatus(
				cmd.Context(),
				blockNumber,
				rollup.BlockStatus{Committed: committed, Verified: verified},
				nil,
			)
		}),
	}
	cmd.Flags().BoolVar(&committed, "committed", false, "block is committed on layer 1")
	cmd.Flags().BoolVar(&verified, "verified", false, "block proof is verified on layer 1")
	return cmd
}

func setProverRunCommand() *cobra.Command {
	var id int32
	var worker string
	cmd := &cobra.Command{
		Use:   "set-prover-run <block>",
		Short: "Record the prover run for a block",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			blockNumber, err := parseBlockNumber(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			now := time.Now()
			run := rollup.ProverRun{
				ID:          id,
				BlockNumber: blockNumber,
				Worker:      worker,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			// Keep the original start time when updating a run
			existing, err := s.db.GetProverRun(ctx, blockNumber)
			if err != nil {
				return err
			}
			if existing != nil {
				run.CreatedAt = existing.CreatedAt
			}
			return s.db.SetProverRun(ctx, run, nil)
		}),
	}
	cmd.Flags().Int32Var(&id, "id", 0, "prover run id")
	cmd.Flags().StringVar(&worker, "worker", "", "prover worker name")
	return cmd
}

func pruneCommand() *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove stale submissions that never executed",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			if retention <= 0 {
				var err error
				retention, err = s.cfg.PruneRetentionDuration()
				if err != nil {
					return err
				}
			}
			count, err := s.db.PruneSubmissions(cmd.Context(), time.Now().Add(-retention))
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		}),
	}
	cmd.Flags().DurationVar(&retention, "retention", 0, "minimum age of pruned submissions, longer than any block sealing delay (defaults to pruneRetention)")
	return cmd
}

func parseBlockNumber(s string) (rollup.BlockNumber, error) {
	ret, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", s, err)
	}
	return rollup.BlockNumber(ret), nil
}

func parseSerialID(s string) (rollup.PriorityOpID, error) {
	ret, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid serial id %q: %w", s, err)
	}
	return rollup.PriorityOpID(ret), nil
}

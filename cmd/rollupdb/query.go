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
	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/blinklabs-io/rollupdb/rollup"
	"github.com/spf13/cobra"
)

func txCommand() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "tx <hash>",
		Short: "Show the latest execution of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			hash, err := rollup.NewTxHashFromHex(args[0])
			if err != nil {
				return err
			}
			if summary {
				ret, err := s.explorer.TxView(cmd.Context(), hash)
				if err != nil {
					return err
				}
				return printJSON(ret)
			}
			result, err := s.explorer.TxByHash(cmd.Context(), hash)
			if err != nil {
				return err
			}
			ret, err := newExecutionOutput(result)
			if err != nil {
				return err
			}
			return printJSON(ret)
		}),
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "show the funds movement summary, also accepts layer 1 hashes of priority operations")
	return cmd
}

func blockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <number>",
		Short: "Show every execution and priority operation in a block",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			blockNumber, err := parseBlockNumber(args[0])
			if err != nil {
				return err
			}
			results, err := s.explorer.ExecutionsByBlock(cmd.Context(), blockNumber)
			if err != nil {
				return err
			}
			priorityOps, err := s.db.PriorityOpsByBlock(cmd.Context(), blockNumber, nil)
			if err != nil {
				return err
			}
			ret := blockOutput{
				Executions:  make([]*executionOutput, 0, len(results)),
				PriorityOps: make([]*priorityOpOutput, 0, len(priorityOps)),
			}
			for i := range results {
				tmpOutput, err := newExecutionOutput(&results[i])
				if err != nil {
					return err
				}
				ret.Executions = append(ret.Executions, tmpOutput)
			}
			for i := range priorityOps {
				tmpOutput, err := newPriorityOpOutput(&priorityOps[i])
				if err != nil {
					return err
				}
				ret.PriorityOps = append(ret.PriorityOps, tmpOutput)
			}
			return printJSON(ret)
		}),
	}
	return cmd
}

func historyCommand() *cobra.Command {
	var offset, limit int
	var oldestFirst bool
	cmd := &cobra.Command{
		Use:   "history <address>",
		Short: "Show the transaction history of an account",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			address, err := rollup.NewAddressFromHex(args[0])
			if err != nil {
				return err
			}
			direction := types.SortNewestFirst
			if oldestFirst {
				direction = types.SortOldestFirst
			}
			ret, err := s.explorer.History(cmd.Context(), address, offset, limit, direction)
			if err != nil {
				return err
			}
			return printJSON(ret)
		}),
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entries to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&oldestFirst, "oldest-first", false, "list the oldest entries first")
	return cmd
}

func receiptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt <hash>",
		Short: "Show the receipt of an executed transaction",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			hash, err := rollup.NewTxHashFromHex(args[0])
			if err != nil {
				return err
			}
			ret, err := s.explorer.TxReceipt(cmd.Context(), hash)
			if err != nil {
				return err
			}
			return printJSON(ret)
		}),
	}
	return cmd
}

func priorityReceiptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priority-receipt <serial-id>",
		Short: "Show the receipt of a priority operation",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			serialID, err := parseSerialID(args[0])
			if err != nil {
				return err
			}
			ret, err := s.explorer.PriorityOpReceipt(cmd.Context(), serialID)
			if err != nil {
				return err
			}
			return printJSON(ret)
		}),
	}
	return cmd
}

func priorityOpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priority-op <serial-id>",
		Short: "Show the funds movement summary of a priority operation",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			serialID, err := parseSerialID(args[0])
			if err != nil {
				return err
			}
			ret, err := s.explorer.PriorityOpView(cmd.Context(), serialID)
			if err != nil {
				return err
			}
			return printJSON(ret)
		}),
	}
	return cmd
}

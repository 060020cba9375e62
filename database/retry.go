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

package database

import (
	"context"
	"time"

	"github.com/blinklabs-io/rollupdb/database/types"
	"github.com/cenkalti/backoff/v5"
)

func (d *Database) queryContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.config.QueryTimeout)
}

// readQuery runs a metadata read. Inside a caller transaction the read runs
// once. Otherwise it runs against the base handle and transient faults are
// retried with exponential backoff
func readQuery[T any](
	ctx context.Context,
	d *Database,
	op string,
	txn *Txn,
	fn func(context.Context, types.Txn) (T, error),
) (T, error) {
	if txn != nil {
		queryCtx, cancel := d.queryContext(ctx)
		defer cancel()
		return fn(queryCtx, txn.Metadata())
	}
	return retryQuery(ctx, d, op, func(queryCtx context.Context) (T, error) {
		return fn(queryCtx, nil)
	})
}

func retryQuery[T any](
	ctx context.Context,
	d *Database,
	op string,
	fn func(context.Context) (T, error),
) (T, error) {
	attempt := func() (T, error) {
		queryCtx, cancel := d.queryContext(ctx)
		defer cancel()
		ret, err := fn(queryCtx)
		if err != nil && !types.IsTransient(err) {
			return ret, backoff.Permanent(err)
		}
		return ret, err
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = d.config.RetryBackoff
	ret, err := backoff.Retry(
		ctx,
		attempt,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(d.config.MaxRetries+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.metrics.retry(op)
			d.logger.Debug(
				"retrying store read after transient fault",
				"component", "database",
				"op", op,
				"wait", wait,
				"error", err,
			)
		}),
	)
	if err != nil && types.IsTransient(err) {
		d.metrics.failure(op)
		d.logger.Warn(
			"store read failed after retries",
			"component", "database",
			"op", op,
			"error", err,
		)
	}
	return ret, err
}

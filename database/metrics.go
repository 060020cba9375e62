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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	retriesTotal  *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
}

func newDatabaseMetrics(promRegistry prometheus.Registerer) *databaseMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &databaseMetrics{
		retriesTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollupdb_database_retries_total",
				Help: "store reads retried after a transient fault",
			},
			[]string{"op"},
		),
		failuresTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollupdb_database_failures_total",
				Help: "store reads that failed after all attempts",
			},
			[]string{"op"},
		),
	}
}

func (m *databaseMetrics) retry(op string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(op).Inc()
}

func (m *databaseMetrics) failure(op string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(op).Inc()
}

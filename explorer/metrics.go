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

package explorer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeLost      = "lost"
	outcomeCorrupt   = "corrupt"
	outcomeInvariant = "invariant_violation"
)

type explorerMetrics struct {
	reconcileTotal *prometheus.CounterVec
	flagMismatch   prometheus.Counter
}

func newExplorerMetrics(promRegistry prometheus.Registerer) *explorerMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &explorerMetrics{
		reconcileTotal: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rollupdb_reconcile_total",
				Help: "execution records reconciled, by outcome",
			},
			[]string{"outcome"},
		),
		flagMismatch: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "rollupdb_reconcile_flag_mismatch_total",
				Help: "execution records whose stored success flag disagrees with the operation",
			},
		),
	}
}

func (m *explorerMetrics) outcome(outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(outcome).Inc()
}

func (m *explorerMetrics) mismatch() {
	if m == nil {
		return
	}
	m.flagMismatch.Inc()
}

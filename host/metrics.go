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

package host

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type hostMetrics struct {
	invocations     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	eventsCommitted *prometheus.CounterVec
	custodyBalance  prometheus.Gauge
	lastLedgerTime  prometheus.Gauge
}

func (h *Host) initMetrics() {
	promautoFactory := promauto.With(h.promRegistry)
	h.metrics = &hostMetrics{
		invocations: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "descholar_host_invocations_total",
				Help: "contract invocations by method and result code",
			},
			[]string{"method", "result"},
		),
		duration: promautoFactory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "descholar_host_invocation_duration_seconds",
				Help:    "time spent executing and committing an invocation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		eventsCommitted: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "descholar_host_events_committed_total",
				Help: "contract events committed by type",
			},
			[]string{"type"},
		),
		custodyBalance: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "descholar_host_custody_balance",
				Help: "token balance held in escrow by the contract",
			},
		),
		lastLedgerTime: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "descholar_host_last_ledger_time_seconds",
				Help: "ledger time of the last committed invocation",
			},
		),
	}
}

func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

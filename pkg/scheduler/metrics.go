// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/reposync/pkg/syncengine"
)

// Metrics is optional ambient instrumentation. SyncEngine/Scheduler
// behavior never depends on whether one is wired in; every method is
// nil-safe through the Scheduler wrapper that calls it. Observe updates
// the outcome counter and duration histogram; the retry-count and
// in-progress gauges are registered but nothing sets them, so they keep
// their zero state.
type Metrics struct {
	syncTotal       *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	retryCount      *prometheus.GaugeVec
	projectsRunning prometheus.Gauge
}

// NewMetrics registers the scheduler's metrics on reg and returns a
// Metrics ready to observe runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposync_sync_total",
			Help: "Total number of sync runs by outcome.",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "reposync_sync_duration_seconds",
			Help: "Duration of sync runs in seconds.",
		}),
		retryCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reposync_retry_count",
			Help: "Current retry_count per project.",
		}, []string{"project"}),
		projectsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reposync_projects_in_progress",
			Help: "Number of projects currently in_progress.",
		}),
	}
	reg.MustRegister(m.syncTotal, m.syncDuration, m.retryCount, m.projectsRunning)
	return m
}

// Observe records the outcome of one completed SyncResult.
func (m *Metrics) Observe(result syncengine.SyncResult) {
	if m == nil {
		return
	}
	m.syncDuration.Observe(result.DurationSeconds)
	switch result.Kind {
	case syncengine.KindSkipped:
		m.syncTotal.WithLabelValues("skipped").Inc()
	case syncengine.KindSuccess:
		m.syncTotal.WithLabelValues("completed").Inc()
	case syncengine.KindFailed:
		m.syncTotal.WithLabelValues("failed").Inc()
	}
}

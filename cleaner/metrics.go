/*
 *
 * Copyright 2026 Aeron authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package cleaner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments a Cleaner.
type Metrics struct {
	partitionsCleaned prometheus.Counter
	bytesZeroed       prometheus.Counter
	scans             prometheus.Counter
	scanDuration      prometheus.Histogram
	backlog           prometheus.Gauge
}

// NewMetrics registers cleaner metrics with reg and returns the
// collector set. Pass prometheus.DefaultRegisterer for the process-wide
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		partitionsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aeron",
			Subsystem: "cleaner",
			Name:      "partitions_cleaned_total",
			Help:      "Partitions zeroed and returned to the clean state.",
		}),
		bytesZeroed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aeron",
			Subsystem: "cleaner",
			Name:      "bytes_zeroed_total",
			Help:      "Term bytes zeroed.",
		}),
		scans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aeron",
			Subsystem: "cleaner",
			Name:      "scans_total",
			Help:      "Scans over the partition set.",
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aeron",
			Subsystem: "cleaner",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one scan over the partition set.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
		backlog: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "aeron",
			Subsystem: "cleaner",
			Name:      "backlog_partitions",
			Help:      "Partitions currently awaiting cleaning.",
		}),
	}
}

func (m *Metrics) observeCleaned(termBytes int) {
	m.partitionsCleaned.Inc()
	m.bytesZeroed.Add(float64(termBytes))
}

func (m *Metrics) observeScan(d time.Duration) {
	m.scans.Inc()
	m.scanDuration.Observe(d.Seconds())
}

func (m *Metrics) setBacklog(n int) {
	m.backlog.Set(float64(n))
}

/*
Copyright © 2026 The Gauth Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes the prometheus counters and gauges a running
// Server emits. Call Register to attach them to a registerer of your
// choosing; an unregistered Server still works, it just doesn't report.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	subsystem = "gauth"

	mintAttempts = "mint_attempts_total"
	mintDuration = "mint_duration_seconds"
	refreshDelay = "next_refresh_seconds"
	serverState  = "server_state"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	MintAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      mintAttempts,
		Help:      "Number of token mint attempts, labeled by server name and outcome.",
	}, []string{"name", "status"})

	MintDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      mintDuration,
		Help:      "Latency of a single mint attempt, success or failure.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"name"})

	NextRefreshSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      refreshDelay,
		Help:      "Seconds until the next scheduled proactive refresh, as of the last arm.",
	}, []string{"name"})

	ServerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      serverState,
		Help:      "Current state of a server, one gauge per known state name (1 for active, 0 otherwise).",
	}, []string{"name", "state"})
)

// ObserveMint records a mint attempt's outcome and latency the way the
// secret-provider layer records ObserveAPICall.
func ObserveMint(name string, err error, seconds float64) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	MintAttemptsTotal.WithLabelValues(name, status).Inc()
	MintDurationSeconds.WithLabelValues(name).Observe(seconds)
}

// Register attaches every collector to reg. Safe to call with
// prometheus.DefaultRegisterer; callers embedding gauth in a larger
// service should pass their own registry instead.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{MintAttemptsTotal, MintDurationSeconds, NextRefreshSeconds, ServerState}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// MustRegister is Register but panics on failure, mirroring the
// package-init pattern used elsewhere for metrics that must exist.
func MustRegister(reg prometheus.Registerer) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}

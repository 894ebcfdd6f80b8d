// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keychain.
//
// go-keychain is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for the keystore
// engine's command surface. It exposes per-command counters and
// duration histograms, error counters, resource gauges, and a counter
// of calls delegated to a subordinate legacy backend.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all keystore metrics
	Namespace = "keystore"

	// Label names
	LabelOperation  = "operation"
	LabelBackend    = "backend"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Backend classifications, matching pkg/blob's blob classification:
	// a native blob handled directly, versus a legacy blob migrated in
	// place or delegated to a subordinate.
	BackendNative        = "native"
	BackendLegacyMigrate = "legacy_migrate"
	BackendLegacyMirror  = "legacy_mirror"

	// Operation names, one per engine facade command (spec §4.7/§6.1).
	OpGenerateKey       = "generate_key"
	OpImportKey         = "import_key"
	OpExportKey         = "export_key"
	OpGetCharacteristics = "get_characteristics"
	OpBegin             = "begin"
	OpUpdate            = "update"
	OpFinish            = "finish"
	OpAbort             = "abort"
	OpGetSupported      = "get_supported"
)

var (
	// OperationsTotal tracks the total number of engine facade commands
	// by command name, blob-classification backend, and outcome.
	// Use RecordOperation to increment this counter with the
	// appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of engine facade commands by operation, backend, and status",
		},
		[]string{LabelOperation, LabelBackend, LabelStatus},
	)

	// OperationDuration tracks the duration of engine facade commands
	// in seconds. Buckets are optimized for typical cryptographic
	// operation latencies.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine facade commands in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation, LabelBackend},
	)

	// ErrorsTotal tracks the total number of errors by operation,
	// backend, and status.Code error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, backend, and error type",
		},
		[]string{LabelOperation, LabelBackend, LabelErrorType},
	)

	// LegacyDelegatedCallsTotal tracks the number of primitive calls
	// the legacy adapter has delegated to a subordinate backend, per
	// spec §4.8's "this count is observable for testing" requirement.
	LegacyDelegatedCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "legacy_delegated_calls_total",
			Help:      "Total number of primitive calls delegated to the legacy subordinate backend",
		},
	)

	// Goroutines tracks the current number of goroutines in the keystore engine.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	// Updated periodically by the resource collector.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// GCPauseTotalSeconds tracks the cumulative time spent in GC stop-the-world pauses.
	// Updated periodically by the resource collector.
	GCPauseTotalSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "gc_pause_total_seconds",
			Help:      "Cumulative time spent in GC stop-the-world pauses",
		},
	)

	// EngineUptime tracks engine uptime in seconds since startup.
	EngineUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "engine_uptime_seconds",
			Help:      "Engine uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records an engine facade command with its duration
// and status. This is the primary function for tracking operational
// metrics.
//
// Parameters:
//   - operation: The command name (use Op* constants)
//   - backend: The blob classification (use Backend* constants)
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, backend, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, backend, status).Inc()
	OperationDuration.WithLabelValues(operation, backend).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
//
// Parameters:
//   - operation: The command during which the error occurred (use Op* constants)
//   - backend: The blob classification (use Backend* constants)
//   - errorType: A status.Code string identifying the error
func RecordError(operation, backend, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, backend, errorType).Inc()
}

// RecordLegacyDelegation increments the count of primitive calls
// delegated to the legacy subordinate backend.
func RecordLegacyDelegation() {
	if !enabled.Load() {
		return
	}
	LegacyDelegatedCallsTotal.Inc()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}

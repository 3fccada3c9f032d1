// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Spec metrics
	specLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ibpcdc_spec_loads_total",
		Help: "Training spec load attempts by outcome",
	}, []string{"outcome"}) // outcome=success|schema_error|parse_error|io_error

	specValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibpcdc_spec_validation_errors_total",
		Help: "Total number of training spec validation failures",
	})

	specsLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ibpcdc_specs_loaded",
		Help: "Specs in the active set by architecture (last reload)",
	}, []string{"architecture"})

	specsetReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ibpcdc_specset_reloads_total",
		Help: "Spec set reloads by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	// Log analysis metrics
	analyzerFilesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibpcdc_loganalyzer_files_scanned_total",
		Help: "Total number of log files scanned",
	})

	analyzerLinesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ibpcdc_loganalyzer_lines_matched_total",
		Help: "Total number of log lines matching an analysis pattern",
	})

	// Catalog metrics
	catalogOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ibpcdc_catalog_operations_total",
		Help: "Catalog store operations by kind and outcome",
	}, []string{"op", "outcome"})
)

func IncSpecLoad(outcome string)      { specLoadsTotal.WithLabelValues(outcome).Inc() }
func IncSpecValidationError()         { specValidationErrors.Inc() }
func IncSpecsetReload(outcome string) { specsetReloadsTotal.WithLabelValues(outcome).Inc() }

// RecordSpecsLoaded replaces the per-architecture gauge with counts from the active set.
func RecordSpecsLoaded(byArchitecture map[string]int) {
	specsLoaded.Reset()
	for arch, n := range byArchitecture {
		specsLoaded.WithLabelValues(arch).Set(float64(n))
	}
}

func RecordLogScan(files, matched int) {
	analyzerFilesScanned.Add(float64(files))
	analyzerLinesMatched.Add(float64(matched))
}

func IncCatalogOp(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	catalogOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSpecsLoaded_ResetsStaleLabels(t *testing.T) {
	RecordSpecsLoaded(map[string]int{"PCN": 2, "PMPNet": 1})
	assert.Equal(t, 2.0, testutil.ToFloat64(specsLoaded.WithLabelValues("PCN")))

	RecordSpecsLoaded(map[string]int{"SnowFlakeNet": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(specsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(specsLoaded.WithLabelValues("SnowFlakeNet")))
}

func TestIncCatalogOp_Outcome(t *testing.T) {
	before := testutil.ToFloat64(catalogOperationsTotal.WithLabelValues("register", "failure"))
	IncCatalogOp("register", errors.New("boom"))
	after := testutil.ToFloat64(catalogOperationsTotal.WithLabelValues("register", "failure"))
	assert.Equal(t, before+1, after)
}

func TestRecordLogScan(t *testing.T) {
	files := testutil.ToFloat64(analyzerFilesScanned)
	lines := testutil.ToFloat64(analyzerLinesMatched)
	RecordLogScan(3, 7)
	assert.Equal(t, files+3, testutil.ToFloat64(analyzerFilesScanned))
	assert.Equal(t, lines+7, testutil.ToFloat64(analyzerLinesMatched))
}

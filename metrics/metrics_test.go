package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestObserveGenerationOutcomes(t *testing.T) {
	m := Get()
	ok := m.GenerationCallsTotal.WithLabelValues("script", "test", "success")
	failed := m.GenerationCallsTotal.WithLabelValues("script", "test", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveGeneration("script", "test", 0.2, nil)
	ObserveGeneration("script", "test", 0.4, errors.New("boom"))
	ObserveGeneration("script", "test", 0.1, nil)

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveValue(t *testing.T) {
	before := testutil.ToFloat64(DistinctObservables)

	assert.True(t, ObserveValue("domain", "metrics-test.example"))
	assert.False(t, ObserveValue("domain", "metrics-test.example"))
	assert.True(t, ObserveValue("url", "metrics-test.example"))

	assert.Equal(t, before+2, testutil.ToFloat64(DistinctObservables))
}

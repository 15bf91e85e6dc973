package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterOnce(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)
	Register(r)
	assert.Equal(t, r, GetRegisterer())
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(OperationTotal.WithLabelValues(SaveLabel, SuccessLabel))
	Observe(SaveLabel, SuccessLabel, time.Now())
	after := testutil.ToFloat64(OperationTotal.WithLabelValues(SaveLabel, SuccessLabel))
	assert.Equal(t, before+1, after)

	ObservePayload(LoadLabel, 128)
	assert.Equal(t, 1, testutil.CollectAndCount(PayloadBytes.WithLabelValues(LoadLabel).(prometheus.Collector)))
}

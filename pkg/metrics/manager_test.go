package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Registers(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterFrames.WithLabelValues("squats", OutcomeAnalyzed).Inc()
	m.CounterFrames.WithLabelValues("squats", OutcomeAnalyzed).Inc()
	m.CounterReps.WithLabelValues("squats").Add(3)
	m.GaugeSessions.Set(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterFrames.WithLabelValues("squats", OutcomeAnalyzed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CounterReps.WithLabelValues("squats")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GaugeSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewTestManager_Independent(t *testing.T) {
	// Each test manager has its own registry, so creating two never panics
	// on duplicate registration.
	a := NewTestManager()
	b := NewTestManager()
	a.CounterCues.WithLabelValues("pushups").Inc()
	assert.Zero(t, testutil.ToFloat64(b.CounterCues.WithLabelValues("pushups")))
}

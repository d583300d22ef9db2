// pkg/chaos/chaos_test.go
package chaos

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdMet(t *testing.T) {
	cases := []struct {
		op    string
		value float64
		want  bool
	}{
		{">", 99.5, true},
		{">", 99.0, false},
		{"<", 0.5, true},
		{">=", 99.0, true},
		{"<=", 99.0, true},
		{"==", 99.0, true},
		{"==", 98.0, false},
		{"!=", 99.0, false}, // unknown operator never passes
	}
	for _, tc := range cases {
		th := Threshold{Operator: tc.op, Value: 99.0}
		assert.Equal(t, tc.want, th.Met(tc.value), "%s %v", tc.op, tc.value)
	}
}

// healingMetric is healthy for the steady-state check, violates for a
// few samples while the fault is active, then recovers.
func healingMetric(name string) Metric {
	var calls int32
	return Metric{
		Name: name,
		Query: func(ctx context.Context) (float64, error) {
			n := atomic.AddInt32(&calls, 1)
			if n >= 2 && n <= 4 {
				return 1, nil
			}
			return 0, nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func TestRunExperimentRecordsRecovery(t *testing.T) {
	engine := NewEngine(nil)

	exp := Experiment{
		Name:           "transient-fault",
		Hypothesis:     "the system heals within the observation window",
		SteadyState:    []Metric{healingMetric("consistency")},
		Duration:       200 * time.Millisecond,
		SampleInterval: 10 * time.Millisecond,
		Validation: []Assertion{
			{
				Metric:    "consistency",
				Condition: func(v float64) bool { return v == 0 },
			},
		},
	}

	result, err := engine.RunExperiment(context.Background(), exp)
	require.NoError(t, err)

	assert.True(t, result.SteadyStateValid)
	assert.True(t, result.HypothesisHeld, "final observation should satisfy the assertion")
	assert.NotEmpty(t, result.Violations, "the injected fault must be observed")
	require.NotNil(t, result.MTTR, "recovery time should be measured")
	assert.Greater(t, result.MTTR.Nanoseconds(), int64(0))
}

func TestRunExperimentAbortsOnBrokenSteadyState(t *testing.T) {
	engine := NewEngine(nil)

	exp := Experiment{
		Name:       "pre-broken",
		Hypothesis: "never runs",
		SteadyState: []Metric{
			{
				Name:      "consistency",
				Query:     func(ctx context.Context) (float64, error) { return 7, nil },
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Duration: time.Second,
	}

	result, err := engine.RunExperiment(context.Background(), exp)
	require.Error(t, err)
	assert.False(t, result.SteadyStateValid)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, 7.0, result.Violations[0].Actual)
}

func TestJudgeFailsOnUnobservedMetric(t *testing.T) {
	engine := NewEngine(nil)
	result := &ExperimentResult{Observations: map[string][]DataPoint{}}

	held := engine.judge([]Assertion{
		{Metric: "never_sampled", Condition: func(float64) bool { return true }},
	}, result)

	assert.False(t, held)
}
